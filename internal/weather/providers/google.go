package providers

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-radar-map/internal/weather"
)

// GoogleGeocoder implements weather.Geocoder on top of the Google geocoding API.
// The underlying client keeps its key in package state and has no context
// support, so calls are raced against ctx.
type GoogleGeocoder struct {
	name    string
	geocode func(geocoder.Address) (geocoder.Location, error)
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{
		name:    "google",
		geocode: geocoder.Geocoding,
		reverse: geocoder.GeocodingReverse,
	}
}

func (g *GoogleGeocoder) Name() string {
	return g.name
}

// Search resolves the query as a single candidate; Google returns its best match only.
func (g *GoogleGeocoder) Search(ctx context.Context, query string) ([]weather.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	ch := make(chan result, 1)
	go func() {
		loc, err := g.geocode(freeTextAddress(query))
		ch <- result{loc, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return []weather.Place{{
			Name:       query,
			Coordinate: weather.Coordinate{Lat: r.loc.Latitude, Lon: r.loc.Longitude},
		}}, nil
	}
}

// freeTextAddress carries the whole query in one component. The client joins
// components with ", " and only rewrites spaces, so the text is escaped here.
func freeTextAddress(query string) geocoder.Address {
	return geocoder.Address{Street: url.QueryEscape(query)}
}

func (g *GoogleGeocoder) Reverse(ctx context.Context, c weather.Coordinate) (weather.Address, error) {
	type result struct {
		addrs []geocoder.Address
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		addrs, err := g.reverse(geocoder.Location{Latitude: c.Lat, Longitude: c.Lon})
		ch <- result{addrs, err}
	}()

	select {
	case <-ctx.Done():
		return weather.Address{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return weather.Address{}, r.err
		}
		if len(r.addrs) == 0 {
			return weather.Address{}, errors.New("google: no address for coordinate")
		}
		return addressFromGoogle(r.addrs[0]), nil
	}
}

func addressFromGoogle(a geocoder.Address) weather.Address {
	return weather.Address{
		DisplayName: a.FormattedAddress,
		City:        a.City,
		County:      a.County,
		Country:     a.Country,
	}
}
