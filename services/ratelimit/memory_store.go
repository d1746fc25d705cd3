package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	count   int
	start   time.Time
	lastHit time.Time
}

// MemoryStore is the default in-process Store. Windows are created lazily
// on first hit and evicted by Sweep after inactivity.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window)}
}

// Hit implements Store. The increment happens under the lock, so
// concurrent handlers never lose counts.
func (s *MemoryStore) Hit(key, bucket string, now time.Time, windowLen time.Duration) (int, time.Time, error) {
	mapKey := key + ":" + bucket

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[mapKey]
	if !ok {
		w = &window{start: now}
		s.windows[mapKey] = w
	}
	if now.Sub(w.start) >= windowLen {
		w.count = 0
		w.start = now
	}
	w.count++
	w.lastHit = now
	return w.count, w.start, nil
}

// Sweep implements Store.
func (s *MemoryStore) Sweep(now time.Time, maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, w := range s.windows {
		if now.Sub(w.lastHit) > maxIdle {
			delete(s.windows, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live windows.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
