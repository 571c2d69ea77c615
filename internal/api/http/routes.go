package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/locations/search", func(c *fiber.Ctx) error {
		q := searchQuery{Q: c.Query("q")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, err := service.Search(c.UserContext(), q.Q)
		if err != nil {
			return toHTTPError(err, "failed to geocode query")
		}
		if loc == nil {
			return fiber.NewError(fiber.StatusNotFound, "no location found for query")
		}
		return c.JSON(loc)
	})

	v1.Get("/weather", func(c *fiber.Ctx) error {
		var req coordinateQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := weather.Location{Latitude: *req.Lat, Longitude: *req.Lon, Name: req.Name}
		report, err := service.ForecastHours(c.UserContext(), loc, req.Hours)
		if err != nil {
			return toHTTPError(err, "failed to fetch forecast")
		}
		return c.JSON(report)
	})

	v1.Get("/favorites", func(c *fiber.Ctx) error {
		return c.JSON(service.Favorites())
	})

	v1.Post("/favorites", func(c *fiber.Ctx) error {
		var loc weather.Location
		if err := c.BodyParser(&loc); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid location body")
		}
		if err := weather.Validate(loc); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if loc.DisplayName == "" {
			loc.DisplayName = loc.Title()
		}

		status := fiber.StatusCreated
		if _, err := service.Favorite(loc.Key()); err == nil {
			status = fiber.StatusOK
		}

		resp := favoriteResponse{Persisted: true}
		if err := service.AddFavorite(c.UserContext(), loc); err != nil {
			if !errors.Is(err, store.ErrCommit) {
				return toHTTPError(err, "failed to add favorite")
			}
			resp.Persisted = false
		}
		stored, err := service.Favorite(loc.Key())
		if err != nil {
			return toHTTPError(err, "failed to add favorite")
		}
		resp.Favorite = stored
		return c.Status(status).JSON(resp)
	})

	v1.Delete("/favorites", func(c *fiber.Ctx) error {
		if err := service.ClearFavorites(c.UserContext()); err != nil && !errors.Is(err, store.ErrCommit) {
			return toHTTPError(err, "failed to clear favorites")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Delete("/favorites/:key", func(c *fiber.Ctx) error {
		if err := service.RemoveFavorite(c.UserContext(), c.Params("key")); err != nil && !errors.Is(err, store.ErrCommit) {
			return toHTTPError(err, "failed to remove favorite")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/favorites/:key/weather", func(c *fiber.Ctx) error {
		report, err := service.RefreshFavorite(c.UserContext(), c.Params("key"))
		if err != nil {
			return toHTTPError(err, "failed to fetch favorite forecast")
		}
		return c.JSON(report)
	})
}

// toHTTPError maps pipeline error kinds to HTTP statuses.
func toHTTPError(err error, fallback string) error {
	switch {
	case errors.Is(err, weather.ErrInvalidQuery):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, weather.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, weather.ErrNetwork):
		return fiber.NewError(fiber.StatusBadGateway, "upstream unavailable")
	case errors.Is(err, weather.ErrDecode), errors.Is(err, weather.ErrMalformedLocation):
		return fiber.NewError(fiber.StatusBadGateway, "upstream returned an unexpected payload")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, fallback)
	}
}

type favoriteResponse struct {
	Favorite  weather.Location `json:"favorite"`
	Persisted bool             `json:"persisted"`
}

// searchQuery holds query parameters for the search endpoint.
type searchQuery struct {
	Q string `validate:"required"`
}

// coordinateQuery holds query parameters for the ad-hoc forecast endpoint.
type coordinateQuery struct {
	Lat   *float64 `validate:"required,gte=-90,lte=90"`
	Lon   *float64 `validate:"required,gte=-180,lte=180"`
	Name  string
	Hours int `validate:"gte=0,lte=48"`
}

func (q *coordinateQuery) bind(c *fiber.Ctx) error {
	lat, err := parseFloatParam(c, "lat")
	if err != nil {
		return err
	}
	lon, err := parseFloatParam(c, "lon")
	if err != nil {
		return err
	}
	q.Lat = lat
	q.Lon = lon
	q.Name = c.Query("name")

	if h := c.Query("hours"); h != "" {
		hours, err := strconv.Atoi(h)
		if err != nil {
			return errors.New("hours must be an integer")
		}
		q.Hours = hours
	}
	return nil
}

func parseFloatParam(c *fiber.Ctx, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New(name + " must be a number")
	}
	return &v, nil
}
