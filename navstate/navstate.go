// Package navstate tracks which screen group a page belongs to and how many
// screens deep it is. The state travels in the URL and is rebuilt on every
// page load.
package navstate

import (
	"fmt"

	"github.com/zhubert/navgroup/params"
)

const (
	// DefaultGroup is the root screen group.
	DefaultGroup = "main"

	// DefaultScreens is the depth of the first screen in a group.
	DefaultScreens = 1
)

// State is an immutable navigation position.
type State struct {
	Group   string // Current screen group
	Screens int    // Screens pushed within Group, always >= 1
}

// Transition describes a requested navigation.
type Transition struct {
	Group   string // Target group; empty keeps the current one
	Replace bool   // Replace the current screen instead of pushing
}

// Root returns the state of a page opened without navigation parameters.
func Root() State {
	return State{Group: DefaultGroup, Screens: DefaultScreens}
}

// Decode rebuilds the state from query parameters. It never fails: missing
// or garbled values fall back to the defaults.
func Decode(p *params.Params) State {
	s := State{
		Group:   p.Get(params.Group, DefaultGroup),
		Screens: p.GetInt(params.Screens, DefaultScreens),
	}
	if s.Screens < 1 {
		s.Screens = DefaultScreens
	}
	return s
}

// DecodeQuery is Decode over a raw query string.
func DecodeQuery(rawQuery string) State {
	return Decode(params.Parse(rawQuery))
}

// Encode writes the state into p.
func (s State) Encode(p *params.Params) {
	p.Set(params.Group, s.Group)
	p.Set(params.Screens, s.Screens)
}

// TransitionTo returns the state after t. Moving to another group starts
// over at depth 1; staying in the group pushes one screen unless t replaces.
func (s State) TransitionTo(t Transition) State {
	next := t.Group
	if next == "" {
		next = s.Group
	}

	if next != s.Group {
		return State{Group: next, Screens: DefaultScreens}
	}

	screens := s.Screens
	if !t.Replace {
		screens++
	}
	return State{Group: next, Screens: screens}
}

// String implements fmt.Stringer.
func (s State) String() string {
	return fmt.Sprintf("%s#%d", s.Group, s.Screens)
}
