package dialog

import (
	"context"
	"errors"
	"fmt"
)

// State identifies a step of one conversation.
type State string

// ID names a conversation definition.
type ID string

const (
	// NotEntered is the state of a conversation that is not on the stack.
	NotEntered State = ""
	// End finishes the current conversation.
	End State = "END"
	// Stop clears the whole stack, bypassing MapToParent.
	Stop State = "STOP"
)

func (s State) sentinel() bool {
	return s == End || s == Stop
}

// ErrUndeclaredState is returned when a handler yields a state its conversation cannot reach.
var ErrUndeclaredState = errors.New("dialog: undeclared state")

// Request is what a handler receives.
type Request struct {
	Event        Event
	Data         Data
	Out          Outbox
	Conversation ID
	// State is the frame state the route matched in; NotEntered for entry points.
	State State
}

// HandlerFunc runs a transition and returns the next state.
type HandlerFunc func(ctx context.Context, r *Request) (State, error)

// Route binds a matcher to a handler, or nests a child conversation.
type Route struct {
	Name   string
	Match  Matcher
	Handle HandlerFunc
	// Next lists every state Handle may return.
	Next []State
	// Nest enters the named child conversation through its entry points.
	Nest ID
}

// Handle declares a handler route.
func Handle(name string, m Matcher, h HandlerFunc, next ...State) Route {
	return Route{Name: name, Match: m, Handle: h, Next: next}
}

// Nest declares a route that enters a child conversation.
func Nest(child ID) Route {
	return Route{Name: "nest:" + string(child), Nest: child}
}

func (r Route) allows(s State) bool {
	for _, n := range r.Next {
		if n == s {
			return true
		}
	}
	return false
}

// Definition describes one conversation. It must not be modified after it is registered.
type Definition struct {
	ID           ID
	EntryPoints  []Route
	States       map[State][]Route
	Fallbacks    []Route
	MapToParent  map[State]State
	AllowReentry bool
}

// reachable reports whether a handler may yield s in this conversation.
func (d *Definition) reachable(s State) bool {
	if s.sentinel() {
		return true
	}
	if _, ok := d.States[s]; ok {
		return true
	}
	_, ok := d.MapToParent[s]
	return ok
}

// Validate checks the definition on its own. Nested references are checked by the Registry.
func (d *Definition) Validate() error {
	if d == nil {
		return errors.New("dialog: nil definition")
	}
	if d.ID == "" {
		return errors.New("dialog: definition without id")
	}
	var errs []error
	if len(d.EntryPoints) == 0 {
		errs = append(errs, fmt.Errorf("%s: no entry points", d.ID))
	}
	check := func(where string, r Route, nestAllowed bool) {
		if r.Nest != "" {
			if !nestAllowed {
				errs = append(errs, fmt.Errorf("%s: %s: nested route not allowed here", d.ID, where))
			}
			if r.Match != nil || r.Handle != nil || len(r.Next) > 0 {
				errs = append(errs, fmt.Errorf("%s: %s: nested route must not carry a handler", d.ID, where))
			}
			if r.Nest == d.ID {
				errs = append(errs, fmt.Errorf("%s: %s: conversation nests itself", d.ID, where))
			}
			return
		}
		if r.Match == nil || r.Handle == nil {
			errs = append(errs, fmt.Errorf("%s: %s: route %q needs a matcher and a handler", d.ID, where, r.Name))
			return
		}
		if len(r.Next) == 0 {
			errs = append(errs, fmt.Errorf("%s: %s: route %q declares no next states", d.ID, where, r.Name))
		}
		for _, n := range r.Next {
			if n == NotEntered || !d.reachable(n) {
				errs = append(errs, fmt.Errorf("%s: %s: route %q: %w %q", d.ID, where, r.Name, ErrUndeclaredState, n))
			}
		}
	}
	for _, r := range d.EntryPoints {
		check("entry", r, false)
	}
	for st, routes := range d.States {
		if st == NotEntered || st.sentinel() {
			errs = append(errs, fmt.Errorf("%s: reserved state name %q", d.ID, st))
		}
		for _, r := range routes {
			check("state "+string(st), r, true)
		}
	}
	for _, r := range d.Fallbacks {
		check("fallback", r, false)
	}
	for from := range d.MapToParent {
		if from == NotEntered || from == Stop {
			errs = append(errs, fmt.Errorf("%s: map_to_parent cannot map %q", d.ID, from))
		}
	}
	return errors.Join(errs...)
}
