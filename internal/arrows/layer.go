package arrows

import "sync"

// Layer is one generation of glyphs. Once detached from the map it ignores
// further additions, so late results from a superseded render are inert.
type Layer struct {
	kind Kind

	mu       sync.RWMutex
	glyphs   []Glyph
	detached bool
}

func newLayer(kind Kind) *Layer {
	return &Layer{kind: kind}
}

func (l *Layer) Kind() Kind {
	return l.kind
}

// Interactive is always false: glyphs must not capture clicks or drags.
func (l *Layer) Interactive() bool {
	return false
}

func (l *Layer) add(g Glyph) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.detached {
		return false
	}
	l.glyphs = append(l.glyphs, g)
	return true
}

func (l *Layer) detach() {
	l.mu.Lock()
	l.detached = true
	l.mu.Unlock()
}

// Detached reports whether the layer has been removed from the map.
func (l *Layer) Detached() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.detached
}

// Glyphs returns a copy of the layer's glyphs.
func (l *Layer) Glyphs() []Glyph {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Glyph(nil), l.glyphs...)
}

func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.glyphs)
}
