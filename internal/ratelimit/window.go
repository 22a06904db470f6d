package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether one more request for key fits in the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Limit() int
	Window() time.Duration
}

// SlidingWindow keeps request timestamps per key in memory. Use it for a
// single process; RedisSlidingWindow shares state across replicas.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

func (s *SlidingWindow) Allow(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-s.window)

	q := s.hits[key]
	i := 0
	for i < len(q) && !q[i].After(cutoff) {
		i++
	}
	q = q[i:]

	if len(q) >= s.limit {
		s.hits[key] = q
		return false, nil
	}

	s.hits[key] = append(q, now)
	return true, nil
}

func (s *SlidingWindow) Limit() int {
	return s.limit
}

func (s *SlidingWindow) Window() time.Duration {
	return s.window
}
