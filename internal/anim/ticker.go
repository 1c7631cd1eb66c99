// Package anim provides the tickers that pace the animation loops.
package anim

import (
	"sync"
	"time"
)

// Ticker is the subset of time.Ticker the animation loops depend on.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Factory creates a ticker firing every d.
type Factory func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

// NewTicker is the Factory backed by time.Ticker.
func NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// ManualTicker fires only when Tick is called.
type ManualTicker struct {
	c chan time.Time

	mu      sync.Mutex
	stopped bool
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{c: make(chan time.Time)}
}

func (m *ManualTicker) C() <-chan time.Time { return m.c }

func (m *ManualTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// Stopped reports whether Stop has been called.
func (m *ManualTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Tick delivers one tick, blocking until the loop receives it or timeout elapses.
// It reports whether the tick was received.
func (m *ManualTicker) Tick(timeout time.Duration) bool {
	select {
	case m.c <- time.Now():
		return true
	case <-time.After(timeout):
		return false
	}
}

// ManualFactory hands out ManualTickers and records them.
type ManualFactory struct {
	mu      sync.Mutex
	tickers []*ManualTicker
}

func (f *ManualFactory) New(time.Duration) Ticker {
	t := NewManualTicker()
	f.mu.Lock()
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	return t
}

// Created returns how many tickers have been handed out.
func (f *ManualFactory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

// Last returns the most recently created ticker, or nil.
func (f *ManualFactory) Last() *ManualTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tickers) == 0 {
		return nil
	}
	return f.tickers[len(f.tickers)-1]
}
