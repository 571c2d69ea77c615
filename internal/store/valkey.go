package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// ValkeyRepository persists favorites in a single Valkey hash: field is the
// identity key, value the JSON-encoded location.
type ValkeyRepository struct {
	client valkey.Client
	key    string
}

// NewValkeyRepository constructs a repository backed by Valkey.
func NewValkeyRepository(client valkey.Client, key string) *ValkeyRepository {
	if key == "" {
		key = "weather:favorites"
	}
	return &ValkeyRepository{client: client, key: key}
}

// Load reads every stored favorite.
func (r *ValkeyRepository) Load(ctx context.Context) ([]weather.Location, error) {
	fields, err := r.client.Do(ctx, r.client.B().Hgetall().Key(r.key).Build()).AsStrMap()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}

	return decodeFavorites(fields)
}

// Save replaces the hash atomically with MULTI/EXEC.
func (r *ValkeyRepository) Save(ctx context.Context, favorites []weather.Location) error {
	cmds := make(valkey.Commands, 0, 4)
	cmds = append(cmds, r.client.B().Multi().Build())
	cmds = append(cmds, r.client.B().Del().Key(r.key).Build())

	fields, err := encodeFavorites(favorites)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		hset := r.client.B().Hset().Key(r.key).FieldValue()
		for _, f := range fields {
			hset = hset.FieldValue(f.field, f.value)
		}
		cmds = append(cmds, hset.Build())
	}
	cmds = append(cmds, r.client.B().Exec().Build())

	for _, resp := range r.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return err
		}
	}
	return nil
}

type hashField struct {
	field string
	value string
}

func encodeFavorites(favorites []weather.Location) ([]hashField, error) {
	out := make([]hashField, 0, len(favorites))
	for _, loc := range favorites {
		payload, err := json.Marshal(loc)
		if err != nil {
			return nil, fmt.Errorf("encode favorite %s: %w", loc.Key(), err)
		}
		out = append(out, hashField{field: loc.Key(), value: string(payload)})
	}
	return out, nil
}

func decodeFavorites(fields map[string]string) ([]weather.Location, error) {
	out := make([]weather.Location, 0, len(fields))
	for field, payload := range fields {
		var loc weather.Location
		if err := json.Unmarshal([]byte(payload), &loc); err != nil {
			return nil, fmt.Errorf("decode favorite %s: %w", field, err)
		}
		out = append(out, loc)
	}
	return out, nil
}

var _ Repository = (*ValkeyRepository)(nil)
