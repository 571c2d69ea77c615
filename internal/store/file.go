package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const fileFormatVersion = 1

// FileRepository persists favorites as a YAML document on local disk.
// Writes go to a temporary file that is renamed over the target.
type FileRepository struct {
	mu   sync.Mutex
	path string
}

type favoritesFile struct {
	Version   int                `yaml:"version"`
	Favorites []weather.Location `yaml:"favorites"`
}

// NewFileRepository creates a repository backed by the file at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Load reads the favorites file. A missing file is an empty list.
func (r *FileRepository) Load(_ context.Context) ([]weather.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read favorites file: %w", err)
	}

	var doc favoritesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse favorites file: %w", err)
	}
	return doc.Favorites, nil
}

// Save writes favorites to disk, replacing the previous contents.
func (r *FileRepository) Save(_ context.Context, favorites []weather.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(favoritesFile{Version: fileFormatVersion, Favorites: favorites})
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create favorites dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".favorites-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write favorites: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync favorites: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close favorites: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace favorites file: %w", err)
	}
	return nil
}

var _ Repository = (*FileRepository)(nil)
