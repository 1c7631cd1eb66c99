package providers

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// ErrNoTile is returned when the imagery host has no tile at a position.
// Callers draw it as transparent.
var ErrNoTile = errors.New("no tile")

// TileClient downloads radar tile images.
type TileClient struct {
	name    string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewTileClient(client *http.Client, userAgent string) *TileClient {
	return &TileClient{
		name: "radar-tiles",
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      1,
				InitialInterval: 250 * time.Millisecond,
				MaxInterval:     time.Second,
			},
			UserAgent: userAgent,
		},
		circuit: newCircuitBreaker("radar-tiles"),
	}
}

func (c *TileClient) Name() string {
	return c.name
}

// Fetch downloads and decodes one tile.
func (c *TileClient) Fetch(ctx context.Context, url string) (image.Image, error) {
	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, getRequest(url))
	if errors.Is(err, errUnexpected) {
		return nil, fmt.Errorf("%w: %v", ErrNoTile, err)
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: tile: %v", errMalformed, err)
	}
	return img, nil
}
