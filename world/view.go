package world

import (
	"maps"
	"slices"
	"time"
)

// View is a read-only snapshot of a world. It copies its input on
// construction, so later world mutation never leaks into a View that a
// state is holding.
type View struct {
	at     time.Time
	values map[string]any
}

// NewView snapshots values at time at.
func NewView(at time.Time, values map[string]any) View {
	return View{at: at, values: maps.Clone(values)}
}

// At returns the time the snapshot was taken.
func (v View) At() time.Time {
	return v.at
}

// Get returns a raw value.
func (v View) Get(key string) (any, bool) {
	val, ok := v.values[key]

	return val, ok
}

// Float returns a numeric value as float64.
func (v View) Float(key string) (float64, bool) {
	return toFloat(v.values[key])
}

// Bool returns a boolean value.
func (v View) Bool(key string) (bool, bool) {
	b, ok := v.values[key].(bool)

	return b, ok
}

// Keys returns the snapshot keys in sorted order.
func (v View) Keys() []string {
	return slices.Sorted(maps.Keys(v.values))
}

// Values returns a copy of the snapshot contents.
func (v View) Values() map[string]any {
	return maps.Clone(v.values)
}

func (v View) Len() int {
	return len(v.values)
}

func toFloat(val any) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
