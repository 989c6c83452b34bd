package testutil

import (
	"fmt"
	"sync"
)

// FixedSuffixes hands out scope suffixes from a fixed list, in order.
//
// Once the list is exhausted it continues with zero-padded hex counters
// ("000001", "000002", ...), so a derived configuration is identical across
// runs of the same test.
//
// Thread-safety: all methods are safe for concurrent use.
type FixedSuffixes struct {
	mu       sync.Mutex
	suffixes []string
	next     int
	counter  int
}

// NewFixedSuffixes creates a generator returning suffixes in order.
func NewFixedSuffixes(suffixes ...string) *FixedSuffixes {
	return &FixedSuffixes{suffixes: suffixes}
}

// Suffix returns the next suffix.
//
// Implements config.SuffixGenerator.
func (g *FixedSuffixes) Suffix() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next < len(g.suffixes) {
		s := g.suffixes[g.next]
		g.next++
		return s
	}
	g.counter++
	return fmt.Sprintf("%06x", g.counter)
}
