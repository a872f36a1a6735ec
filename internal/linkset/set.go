// Package linkset holds discovered links and splits them into worker batches.
package linkset

import (
	"sync"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

// Set is a thread-safe set of discovered links. Duplicate inserts are absorbed.
// Once drained it is empty and should not be reused for another run.
type Set struct {
	mu    sync.Mutex
	links map[grabber.Link]struct{}
}

// New returns an empty Set.
func New() *Set {
	return &Set{links: make(map[grabber.Link]struct{})}
}

// Add inserts link and reports whether it was not already present.
func (s *Set) Add(link grabber.Link) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[link]; ok {
		return false
	}
	s.links[link] = struct{}{}
	return true
}

// Len returns the number of distinct links held.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

// Drain atomically empties the set and returns its former contents in no
// particular order.
func (s *Set) Drain() []grabber.Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]grabber.Link, 0, len(s.links))
	for link := range s.links {
		out = append(out, link)
	}
	s.links = make(map[grabber.Link]struct{})
	return out
}

// DrainIntoBatches empties the set into exactly n batches. Batch sizes differ by
// at most one and never exceed ceil(len/n); trailing batches are empty when the
// set holds fewer than n links.
func (s *Set) DrainIntoBatches(n int) [][]grabber.Link {
	if n < 1 {
		n = 1
	}
	links := s.Drain()
	batches := make([][]grabber.Link, n)
	for i, chunk := range Split(links, n) {
		batches[i] = chunk
	}
	for i := range batches {
		if batches[i] == nil {
			batches[i] = []grabber.Link{}
		}
	}
	return batches
}
