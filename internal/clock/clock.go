package clock

import (
	"sync"
	"time"
)

// Clock abstracts time operations for testability.
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by the system clock.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time { return time.Now() }

// Mock is a Clock that always returns a fixed time.
type Mock struct {
	T time.Time
}

// Now returns the fixed time.
func (m Mock) Now() time.Time { return m.T }

// Stepper is a Clock that advances by Step on every call, starting at Start.
// It is safe for concurrent use and gives records strictly increasing
// timestamps in tests.
type Stepper struct {
	Start time.Time
	Step  time.Duration

	mu sync.Mutex
	n  int64
}

// Now returns Start + n*Step for the n-th call, counting from zero.
func (s *Stepper) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.Start.Add(time.Duration(s.n) * s.Step)
	s.n++
	return t
}
