// Package favorites keeps the user's short list of saved places.
package favorites

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/store"
	"github.com/i474232898/weather-radar-map/internal/weather"
)

const (
	// StoreKey is the store key the list is persisted under.
	StoreKey = "favorites"

	// MaxFavorites caps the list; the oldest entry is dropped on overflow.
	MaxFavorites = 5

	// ProximityMeters is the radius within which two places count as the same.
	ProximityMeters = 500.0
)

var (
	ErrDuplicate = errors.New("a favorite already exists near this place")
	ErrNotFound  = errors.New("favorite not found")
)

// Favorite is a saved place.
type Favorite struct {
	ID         string             `json:"id" yaml:"id"`
	Name       string             `json:"name" yaml:"name"`
	Coordinate weather.Coordinate `json:"coordinate" yaml:"coordinate"`
	AddedAt    time.Time          `json:"addedAt" yaml:"addedAt"`
}

// Place returns the favorite as a weather.Place.
func (f Favorite) Place() weather.Place {
	return weather.Place{Name: f.Name, Coordinate: f.Coordinate}
}

// List manages favorites backed by a store.
type List struct {
	mu     sync.Mutex
	store  store.Store
	items  []Favorite
	now    func() time.Time
	logger *zap.Logger
}

// Load reads the persisted list. A missing entry yields an empty list.
func Load(s store.Store, logger *zap.Logger) (*List, error) {
	l := &List{store: s, now: time.Now, logger: logger.Named("favorites")}

	err := s.Get(StoreKey, &l.items)
	switch {
	case errors.Is(err, store.ErrNotFound):
		l.items = nil
	case err != nil:
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	if len(l.items) > MaxFavorites {
		l.items = l.items[len(l.items)-MaxFavorites:]
	}
	return l, nil
}

// Add saves a place. Blank names fall back to the coordinate string.
func (l *List) Add(name string, c weather.Coordinate) (Favorite, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = c.String()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, f := range l.items {
		if weather.DistanceMeters(f.Coordinate, c) <= ProximityMeters {
			return Favorite{}, fmt.Errorf("%w: %s", ErrDuplicate, f.Name)
		}
	}

	fav := Favorite{
		ID:         uuid.NewString(),
		Name:       name,
		Coordinate: c,
		AddedAt:    l.now().UTC(),
	}
	items := append(append([]Favorite(nil), l.items...), fav)
	if over := len(items) - MaxFavorites; over > 0 {
		l.logger.Debug("dropping oldest favorites", zap.Int("count", over))
		items = items[over:]
	}

	if err := l.store.Set(StoreKey, items); err != nil {
		return Favorite{}, fmt.Errorf("save favorites: %w", err)
	}
	l.items = items
	return fav, nil
}

// Remove deletes a favorite by ID.
func (l *List) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i, f := range l.items {
		if f.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	items := append(append([]Favorite(nil), l.items[:idx]...), l.items[idx+1:]...)
	if err := l.store.Set(StoreKey, items); err != nil {
		return fmt.Errorf("save favorites: %w", err)
	}
	l.items = items
	return nil
}

// List returns the favorites, oldest first.
func (l *List) List() []Favorite {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Favorite(nil), l.items...)
}

// Places returns the favorites as places.
func (l *List) Places() []weather.Place {
	favs := l.List()
	out := make([]weather.Place, len(favs))
	for i, f := range favs {
		out[i] = f.Place()
	}
	return out
}
