// Package metrics provides the in-process metric store: a thread-safe,
// bounded, per-name time-series buffer with aggregate statistics.
package metrics

import (
	"sync"
	"time"
)

const (
	// DefaultCapacity is the per-metric ring buffer size
	DefaultCapacity = 1000
)

// Kind classifies a metric stream
type Kind string

const (
	KindCounter   Kind = "counter"
	KindGauge     Kind = "gauge"
	KindHistogram Kind = "histogram"
	KindTimer     Kind = "timer"
	KindBusiness  Kind = "business"
)

// Definition describes a registered metric. Definitions are immutable;
// registering the same name twice overwrites the previous definition.
type Definition struct {
	Name        string   `json:"name"`
	Kind        Kind     `json:"kind"`
	Description string   `json:"description,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	TagNames    []string `json:"tag_names,omitempty"`
}

// Value is one timestamped observation of a metric
type Value struct {
	Value     float64                `json:"value"`
	Timestamp time.Time              `json:"timestamp"`
	Tags      map[string]string      `json:"tags,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Info is the per-metric snapshot returned by Snapshot
type Info struct {
	Definition Definition `json:"definition"`
	Latest     *float64   `json:"latest,omitempty"`
	Count      int        `json:"count"`
	Statistics Statistics `json:"statistics"`
}

// Store is a bounded, per-name time-series buffer. It is safe for
// concurrent use by multiple collector writers and query readers;
// critical sections are pure in-memory copy/append operations.
type Store struct {
	mu          sync.RWMutex
	capacity    int
	definitions map[string]Definition
	series      map[string][]Value
	counters    map[string]float64
	mirror      *Mirror
}

// NewStore creates a store with the given per-metric capacity.
// A non-positive capacity falls back to DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity:    capacity,
		definitions: make(map[string]Definition),
		series:      make(map[string][]Value),
		counters:    make(map[string]float64),
	}
}

// SetMirror attaches an optional Prometheus mirror. Must be called
// before the store is shared between goroutines.
func (s *Store) SetMirror(m *Mirror) {
	s.mirror = m
}

// Register stores or overwrites a metric definition. Never fails;
// re-registration is idempotent and the last registration wins.
func (s *Store) Register(def Definition) {
	s.mu.Lock()
	s.definitions[def.Name] = def
	s.mu.Unlock()
}

// Record appends a value for the named metric, evicting the oldest
// entry when the buffer is at capacity.
func (s *Store) Record(name string, value float64, tags map[string]string, metadata map[string]interface{}) {
	v := Value{
		Value:     value,
		Timestamp: time.Now(),
		Tags:      tags,
		Metadata:  metadata,
	}

	s.mu.Lock()
	s.append(name, v)
	s.mu.Unlock()

	if s.mirror != nil {
		s.mirror.Observe(name, value)
	}
}

// Increment adds delta to the metric's running counter and records the
// new total as one observation. The read-modify-write happens inside a
// single critical section so concurrent increments never lose updates.
func (s *Store) Increment(name string, delta float64, tags map[string]string) float64 {
	s.mu.Lock()
	s.counters[name] += delta
	total := s.counters[name]
	s.append(name, Value{Value: total, Timestamp: time.Now(), Tags: tags})
	s.mu.Unlock()

	if s.mirror != nil {
		s.mirror.ObserveCounter(name, delta, total)
	}
	return total
}

// SetGauge records the current value of a gauge-style metric
func (s *Store) SetGauge(name string, value float64, tags map[string]string) {
	s.Record(name, value, tags, nil)
}

// append adds v to the named series; caller must hold s.mu.
func (s *Store) append(name string, v Value) {
	buf := append(s.series[name], v)
	if len(buf) > s.capacity {
		buf = buf[len(buf)-s.capacity:]
	}
	s.series[name] = buf
}

// Latest returns the most recently recorded value for the metric
func (s *Store) Latest(name string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf := s.series[name]
	if len(buf) == 0 {
		return 0, false
	}
	return buf[len(buf)-1].Value, true
}

// Query returns a time-ascending copy of the metric's values,
// optionally filtered to timestamps at or after since (zero time means
// no filter) and capped to the most recent limit entries (non-positive
// limit means no cap).
func (s *Store) Query(name string, since time.Time, limit int) []Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf := s.series[name]
	start := 0
	if !since.IsZero() {
		for start < len(buf) && buf[start].Timestamp.Before(since) {
			start++
		}
	}
	matched := buf[start:]
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}

	out := make([]Value, len(matched))
	copy(out, matched)
	return out
}

// Statistics computes aggregate statistics over the metric's values at
// or after since. A metric with no matching values yields the zero
// Statistics, not an error.
func (s *Store) Statistics(name string, since time.Time) Statistics {
	return Compute(s.Query(name, since, 0))
}

// Sweep removes values older than maxAge across all metrics and
// returns the number of values dropped. Capacity eviction is
// independent of this age-based sweep.
func (s *Store) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for name, buf := range s.series {
		start := 0
		for start < len(buf) && buf[start].Timestamp.Before(cutoff) {
			start++
		}
		if start == 0 {
			continue
		}
		removed += start
		if start == len(buf) {
			delete(s.series, name)
			continue
		}
		kept := make([]Value, len(buf)-start)
		copy(kept, buf[start:])
		s.series[name] = kept
	}
	return removed
}

// Definition returns the registered definition for a metric name
func (s *Store) Definition(name string) (Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.definitions[name]
	return def, ok
}

// Names returns all metric names that have recorded values or definitions
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.namesLocked()
}

// Snapshot returns per-metric definition, latest value, count and
// statistics for every known metric.
func (s *Store) Snapshot() map[string]Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Info, len(s.series))
	for _, name := range s.namesLocked() {
		buf := s.series[name]
		info := Info{
			Definition: s.definitions[name],
			Count:      len(buf),
			Statistics: Compute(buf),
		}
		if len(buf) > 0 {
			latest := buf[len(buf)-1].Value
			info.Latest = &latest
		}
		out[name] = info
	}
	return out
}

// namesLocked returns all known names; caller must hold s.mu.
func (s *Store) namesLocked() []string {
	seen := make(map[string]struct{}, len(s.series)+len(s.definitions))
	for name := range s.series {
		seen[name] = struct{}{}
	}
	for name := range s.definitions {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	return names
}
