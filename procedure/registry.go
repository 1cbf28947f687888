package procedure

import (
	"fmt"
	"slices"
)

// Registry is an ordered set of definitions keyed by name. Successors are
// resolved through it by name.
type Registry struct {
	order []string
	defs  map[string]*Definition
}

// NewRegistry builds a registry. Duplicate names fail construction.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	reg := &Registry{defs: make(map[string]*Definition, len(defs))}

	for _, def := range defs {
		if err := reg.Add(def); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// Add registers def.
func (r *Registry) Add(def *Definition) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", ErrMalformedBody)
	}

	if _, ok := r.defs[def.name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateStateName, def.name)
	}

	r.defs[def.name] = def
	r.order = append(r.order, def.name)

	return nil
}

// Lookup returns the definition called name.
func (r *Registry) Lookup(name string) (*Definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}

	return def, nil
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Definitions returns the registered definitions in registration order.
func (r *Registry) Definitions() []*Definition {
	out := make([]*Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}

	return out
}
