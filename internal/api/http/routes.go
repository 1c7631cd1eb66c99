package httpapi

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-radar-map/internal/favorites"
	"github.com/i474232898/weather-radar-map/internal/radar"
	"github.com/i474232898/weather-radar-map/internal/search"
	"github.com/i474232898/weather-radar-map/internal/viewport"
	"github.com/i474232898/weather-radar-map/internal/weather"
)

var validate = validator.New()

// Radar is the timeline exposed over the API.
type Radar interface {
	Play()
	Pause()
	Load(ctx context.Context) string
	Scrub(i int) bool
	Cursor() radar.Cursor
	Frames() []weather.RadarFrame
}

// Layers is the viewport controller exposed over the API.
type Layers interface {
	SetLayer(ctx context.Context, layer viewport.Layer, enabled bool) error
	Layers() viewport.Toggles
}

// Favorites is the saved-place list exposed over the API.
type Favorites interface {
	List() []favorites.Favorite
	Add(name string, c weather.Coordinate) (favorites.Favorite, error)
	Remove(id string) error
}

// Searcher performs immediate forward geocoding.
type Searcher interface {
	Search(ctx context.Context, q string) ([]weather.Place, error)
}

// MapState reports the visible map.
type MapState interface {
	Center() weather.Coordinate
	Zoom() int
	Bounds() weather.Bounds
	Tiles() radar.TileSource
	TimeLabel() string
}

// Deps are the running client's components the API drives.
type Deps struct {
	Radar     Radar
	Layers    Layers
	Favorites Favorites
	Search    Searcher
	Map       MapState
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(stateResponse{
			Radar:     d.Radar.Cursor(),
			Layers:    d.Layers.Layers(),
			Center:    d.Map.Center(),
			Zoom:      d.Map.Zoom(),
			Bounds:    d.Map.Bounds(),
			Tiles:     d.Map.Tiles(),
			TimeLabel: d.Map.TimeLabel(),
		})
	})

	v1.Get("/radar/frames", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"frames": d.Radar.Frames()})
	})

	v1.Post("/radar/play", func(c *fiber.Ctx) error {
		d.Radar.Play()
		return c.JSON(d.Radar.Cursor())
	})

	v1.Post("/radar/pause", func(c *fiber.Ctx) error {
		d.Radar.Pause()
		return c.JSON(d.Radar.Cursor())
	})

	v1.Post("/radar/reload", func(c *fiber.Ctx) error {
		status := d.Radar.Load(c.UserContext())
		return c.JSON(fiber.Map{"status": status, "cursor": d.Radar.Cursor()})
	})

	v1.Post("/radar/scrub", func(c *fiber.Ctx) error {
		var req scrubRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		if !d.Radar.Scrub(*req.Index) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "frame index out of range")
		}
		return c.JSON(d.Radar.Cursor())
	})

	v1.Post("/layers", func(c *fiber.Ctx) error {
		var req layerRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		if err := d.Layers.SetLayer(c.UserContext(), viewport.Layer(req.Kind), *req.Enabled); err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(d.Layers.Layers())
	})

	v1.Get("/favorites", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"favorites": d.Favorites.List()})
	})

	v1.Post("/favorites", func(c *fiber.Ctx) error {
		var req favoriteRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		fav, err := d.Favorites.Add(req.Name, weather.Coordinate{Lat: *req.Lat, Lon: *req.Lon})
		if err != nil {
			if errors.Is(err, favorites.ErrDuplicate) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save favorite")
		}
		return c.Status(fiber.StatusCreated).JSON(fav)
	})

	v1.Delete("/favorites/:id", func(c *fiber.Ctx) error {
		if err := validate.Var(c.Params("id"), "required,uuid"); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid favorite id")
		}
		if err := d.Favorites.Remove(c.Params("id")); err != nil {
			if errors.Is(err, favorites.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "favorite not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to remove favorite")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/search", func(c *fiber.Ctx) error {
		q := searchQuery{Q: c.Query("q")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		places, err := d.Search.Search(c.UserContext(), q.Q)
		if err != nil {
			if errors.Is(err, search.ErrQueryTooShort) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusBadGateway, "geocoder unavailable")
		}
		if places == nil {
			places = []weather.Place{}
		}
		return c.JSON(fiber.Map{"query": q.Q, "results": places})
	})
}

type stateResponse struct {
	Radar  radar.Cursor       `json:"radar"`
	Layers viewport.Toggles   `json:"layers"`
	Center weather.Coordinate `json:"center"`
	Zoom   int                `json:"zoom"`
	Bounds weather.Bounds     `json:"bounds"`
	// Tiles is the radar frame on screen; empty before the first load.
	Tiles     radar.TileSource `json:"tiles"`
	TimeLabel string           `json:"timeLabel"`
}

// scrubRequest selects a frame.
type scrubRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

// layerRequest toggles a visualization.
type layerRequest struct {
	Kind    string `json:"kind" validate:"required,oneof=wind rain particles"`
	Enabled *bool  `json:"enabled" validate:"required"`
}

// favoriteRequest saves a place.
type favoriteRequest struct {
	Name string   `json:"name" validate:"max=80"`
	Lat  *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon  *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

type searchQuery struct {
	Q string `validate:"required,min=3"`
}

func bindBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}
