package engine

import "sync"

// UsedURLSet records every URL that has already produced, or been
// considered for, a feed item during this run. It only grows.
type UsedURLSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewUsedURLSet creates an empty set with the given estimated capacity.
func NewUsedURLSet(estimatedCapacity int) *UsedURLSet {
	return &UsedURLSet{
		seen: make(map[string]struct{}, estimatedCapacity),
	}
}

// Seen reports whether url has been marked.
func (s *UsedURLSet) Seen(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[url]
	return ok
}

// Mark adds url to the set.
func (s *UsedURLSet) Mark(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[url] = struct{}{}
}

// Count returns the number of URLs marked.
func (s *UsedURLSet) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
