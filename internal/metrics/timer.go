package metrics

import (
	"sync"
	"time"
)

// TimerScope records the elapsed time between its creation and Stop
// as one observation, in milliseconds. Stop is idempotent and safe to
// defer, so the duration is recorded on every exit path.
type TimerScope struct {
	store *Store
	name  string
	tags  map[string]string
	start time.Time
	once  sync.Once
}

// StartTimer begins a scoped timing measurement for the named metric
func (s *Store) StartTimer(name string, tags map[string]string) *TimerScope {
	return &TimerScope{
		store: s,
		name:  name,
		tags:  tags,
		start: time.Now(),
	}
}

// Stop records the elapsed duration. Repeated calls are no-ops.
func (t *TimerScope) Stop() time.Duration {
	elapsed := time.Since(t.start)
	t.once.Do(func() {
		t.store.Record(t.name, float64(elapsed.Milliseconds()), t.tags, nil)
	})
	return elapsed
}

// Time runs fn and records its duration, including when fn panics
func (s *Store) Time(name string, tags map[string]string, fn func()) {
	scope := s.StartTimer(name, tags)
	defer scope.Stop()
	fn()
}
