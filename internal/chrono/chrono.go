package chrono

import (
	"sync"
	"time"
)

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in UTC.
	Now() time.Time
}

// StandardImpl is the standard implementation of API using the standard library.
type StandardImpl struct{}

func (StandardImpl) Now() time.Time {
	return time.Now().UTC()
}

// SteppedImpl returns Start on the first call and advances by Step on every
// following call. It is meant for tests that assert on timestamps.
type SteppedImpl struct {
	Start time.Time
	Step  time.Duration

	mutex sync.Mutex
	calls int
}

func (s *SteppedImpl) Now() time.Time {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	now := s.Start.Add(time.Duration(s.calls) * s.Step)
	s.calls++
	return now.UTC()
}
