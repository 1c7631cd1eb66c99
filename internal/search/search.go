// Package search debounces free-text place lookups.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/weather"
)

// ErrQueryTooShort is returned by Search for queries under the minimum length.
var ErrQueryTooShort = errors.New("query too short")

// Result is delivered for the latest query only. A Result with no places
// hides the results panel.
type Result struct {
	Query    string
	Places   []weather.Place
	Err      error
	// Searched is false when the query was too short to look up.
	Searched bool
}

type Options struct {
	Delay     time.Duration
	MinLength int
	Timeout   time.Duration
}

func DefaultOptions() Options {
	return Options{Delay: 350 * time.Millisecond, MinLength: 3, Timeout: 10 * time.Second}
}

// Searcher debounces queries against a geocoder.
type Searcher struct {
	geocoder weather.Geocoder
	deliver  func(Result)
	opts     Options
	logger   *zap.Logger

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
}

func New(g weather.Geocoder, deliver func(Result), opts Options, logger *zap.Logger) *Searcher {
	return &Searcher{
		geocoder: g,
		deliver:  deliver,
		opts:     opts,
		logger:   logger.Named("search"),
	}
}

// Query schedules a lookup after the debounce delay, superseding any pending
// or in-flight query. Short queries clear the results immediately.
func (s *Searcher) Query(q string) {
	q = strings.TrimSpace(q)

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.resetLocked()
	if utf8.RuneCountInString(q) < s.opts.MinLength {
		s.mu.Unlock()
		s.deliver(Result{Query: q})
		return
	}
	s.timer = time.AfterFunc(s.opts.Delay, func() { s.run(seq, q) })
	s.mu.Unlock()
}

// Close drops any pending or in-flight query.
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.resetLocked()
}

// Search performs an immediate lookup without debouncing.
func (s *Searcher) Search(ctx context.Context, q string) ([]weather.Place, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < s.opts.MinLength {
		return nil, fmt.Errorf("%w: need at least %d characters", ErrQueryTooShort, s.opts.MinLength)
	}
	places, err := s.geocoder.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}
	return places, nil
}

func (s *Searcher) run(seq uint64, q string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.cancel = cancel
	s.mu.Unlock()

	places, err := s.geocoder.Search(ctx, q)

	s.mu.Lock()
	stale := seq != s.seq
	if !stale {
		s.cancel = nil
	}
	s.mu.Unlock()
	if stale {
		s.logger.Debug("dropping stale search result", zap.String("query", q))
		return
	}
	if err != nil {
		s.logger.Debug("search failed", zap.String("query", q), zap.Error(err))
	}
	s.deliver(Result{Query: q, Places: places, Err: err, Searched: true})
}

func (s *Searcher) resetLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
