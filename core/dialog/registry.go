package dialog

import (
	"errors"
	"fmt"
)

// Registry holds validated definitions and the ordered list of top-level conversations.
type Registry struct {
	defs map[ID]*Definition
	top  []ID
}

// Match is the result of route selection.
type Match struct {
	Route Route
	// Enter is the child conversation whose entry point matched, if any.
	Enter *Definition
}

// NewRegistry validates defs and returns a registry whose top-level
// conversations are tried in the order given by top.
func NewRegistry(top []ID, defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[ID]*Definition, len(defs))}
	var errs []error
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := r.defs[d.ID]; dup {
			errs = append(errs, fmt.Errorf("dialog: duplicate definition %q", d.ID))
			continue
		}
		r.defs[d.ID] = d
	}
	if len(top) == 0 {
		errs = append(errs, errors.New("dialog: no top-level conversations"))
	}
	for _, id := range top {
		if _, ok := r.defs[id]; !ok {
			errs = append(errs, fmt.Errorf("dialog: unknown top-level conversation %q", id))
		}
	}
	r.top = append([]ID(nil), top...)

	for _, parent := range r.defs {
		for st, routes := range parent.States {
			for _, rt := range routes {
				if rt.Nest == "" {
					continue
				}
				child, ok := r.defs[rt.Nest]
				if !ok {
					errs = append(errs, fmt.Errorf("%s: state %s nests unknown conversation %q", parent.ID, st, rt.Nest))
					continue
				}
				for from, to := range child.MapToParent {
					if !to.sentinel() && !parent.reachable(to) {
						errs = append(errs, fmt.Errorf("%s: maps %q to %q: %w in parent %s", child.ID, from, to, ErrUndeclaredState, parent.ID))
					}
				}
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on invalid definitions.
func MustRegistry(top []ID, defs ...*Definition) *Registry {
	r, err := NewRegistry(top, defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the definition registered under id.
func (r *Registry) Resolve(id ID) (*Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// TopLevel returns the top-level conversations in registration order.
func (r *Registry) TopLevel() []ID {
	return append([]ID(nil), r.top...)
}

// Match selects the route for ev in conversation id at state st.
// With st == NotEntered only entry points are considered. Otherwise the order is
// entry points (when AllowReentry is set), state routes, then fallbacks.
func (r *Registry) Match(id ID, st State, ev Event) (Match, bool) {
	def, ok := r.defs[id]
	if !ok {
		return Match{}, false
	}
	if st == NotEntered {
		return r.first(def.EntryPoints, ev)
	}
	if def.AllowReentry {
		if m, ok := r.first(def.EntryPoints, ev); ok {
			return m, true
		}
	}
	if m, ok := r.first(def.States[st], ev); ok {
		return m, true
	}
	return r.first(def.Fallbacks, ev)
}

func (r *Registry) first(routes []Route, ev Event) (Match, bool) {
	for _, rt := range routes {
		if rt.Nest != "" {
			child := r.defs[rt.Nest]
			for _, entry := range child.EntryPoints {
				if entry.Match.Match(ev) {
					return Match{Route: entry, Enter: child}, true
				}
			}
			continue
		}
		if rt.Match.Match(ev) {
			return Match{Route: rt}, true
		}
	}
	return Match{}, false
}
