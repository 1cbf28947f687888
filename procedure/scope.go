package procedure

import (
	"maps"
	"slices"
	"sync"
)

// Scope carries scratch data between the statements of one run. A fresh
// Scope is created for every Start, so values never leak across runs.
// It is safe to read from diagnostics goroutines while the run advances.
type Scope struct {
	mu    sync.RWMutex
	runID string
	state string
	data  map[string]any
	trail []int
}

// NewScope creates an empty scope.
func NewScope(runID, state string) *Scope {
	return &Scope{
		runID: runID,
		state: state,
		data:  make(map[string]any),
	}
}

func (s *Scope) RunID() string {
	return s.runID
}

func (s *Scope) State() string {
	return s.state
}

// Get retrieves a value.
func (s *Scope) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]

	return val, ok
}

// Set stores a value.
func (s *Scope) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
}

// GetString retrieves a string value.
func (s *Scope) GetString(key string) (string, bool) {
	val, ok := s.Get(key)
	if !ok {
		return "", false
	}

	str, ok := val.(string)

	return str, ok
}

// GetInt retrieves an integer value.
func (s *Scope) GetInt(key string) (int, bool) {
	val, ok := s.Get(key)
	if !ok {
		return 0, false
	}

	i, ok := val.(int)

	return i, ok
}

// GetFloat retrieves a float64 value.
func (s *Scope) GetFloat(key string) (float64, bool) {
	val, ok := s.Get(key)
	if !ok {
		return 0, false
	}

	f, ok := val.(float64)

	return f, ok
}

// Incr adds one to an integer value and returns the result.
func (s *Scope) Incr(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, _ := s.data[key].(int)
	n++
	s.data[key] = n

	return n
}

// Merge copies data into the scope.
func (s *Scope) Merge(data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maps.Copy(s.data, data)
}

// Snapshot returns a copy of the scope data.
func (s *Scope) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.data)
}

// Trail returns the static statement indices executed so far, in order.
func (s *Scope) Trail() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.trail)
}

func (s *Scope) appendTrail(stmt int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trail = append(s.trail, stmt)
}
