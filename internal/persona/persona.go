// Package persona defines the fixed cast of a conversation: the ordered
// roster of AI participants, the single human slot at the end, the function
// schemas each participant is offered, and the prompt text assembled for
// every turn.
package persona

import (
	"errors"
	"fmt"
)

// Human is the reserved name of the human participant. The human always
// occupies the last roster index and never receives tools or prompts.
const Human = "Human"

// Role marks the scripted duty a persona performs in the phased flow.
// Personas without a scripted duty use RoleNone and only participate in
// free-choice selection.
type Role string

const (
	RoleNone          Role = ""
	RoleCoordinator   Role = "coordinator"
	RoleInterviewer   Role = "interviewer"
	RoleResearcher    Role = "researcher"
	RoleBuilder       Role = "builder"
	RoleMarketer      Role = "marketer"
	RoleVideoProducer Role = "video"
)

// Persona is one AI participant. All fields are fixed for the lifetime of a
// conversation; per-turn variation happens through prompt overrides, never by
// mutating the persona.
type Persona struct {
	// Name is the display name, unique within a roster.
	Name string

	// Voice is the provider voice identifier used for this persona's speech.
	Voice string

	// Instructions is the standing persona directive sent with every turn.
	Instructions string

	// Temperature controls sampling randomness for this persona's turns.
	Temperature float64

	// MaxResponseTokens caps the length of a single response.
	MaxResponseTokens int

	// Role marks the persona's scripted duty, if any.
	Role Role
}

// Roster is the ordered, immutable participant list. Persona indices are
// stable for the whole conversation; the human participant is implicitly
// appended at index len(personas).
type Roster struct {
	personas []Persona
	byName   map[string]int
	byRole   map[Role]int
}

// NewRoster validates and builds a roster from the given personas.
// Names must be non-empty, unique, and must not claim the reserved human
// slot. At least one persona is required.
func NewRoster(personas []Persona) (*Roster, error) {
	if len(personas) == 0 {
		return nil, errors.New("persona: roster must contain at least one persona")
	}
	byName := make(map[string]int, len(personas))
	byRole := make(map[Role]int)
	for i, p := range personas {
		if p.Name == "" {
			return nil, fmt.Errorf("persona: roster entry %d has no name", i)
		}
		if p.Name == Human {
			return nil, fmt.Errorf("persona: %q is reserved for the human participant", Human)
		}
		if _, dup := byName[p.Name]; dup {
			return nil, fmt.Errorf("persona: duplicate name %q", p.Name)
		}
		byName[p.Name] = i
		if p.Role != RoleNone {
			if prev, dup := byRole[p.Role]; dup {
				return nil, fmt.Errorf("persona: role %q held by both %q and %q", p.Role, personas[prev].Name, p.Name)
			}
			byRole[p.Role] = i
		}
	}
	cp := make([]Persona, len(personas))
	copy(cp, personas)
	return &Roster{personas: cp, byName: byName, byRole: byRole}, nil
}

// Len returns the number of AI personas, excluding the human slot.
func (r *Roster) Len() int { return len(r.personas) }

// HumanIndex returns the index of the human participant, always the last
// selectable speaker index.
func (r *Roster) HumanIndex() int { return len(r.personas) }

// Get returns the persona at index i.
func (r *Roster) Get(i int) (Persona, error) {
	if i < 0 || i >= len(r.personas) {
		return Persona{}, fmt.Errorf("persona: index %d out of range [0,%d)", i, len(r.personas))
	}
	return r.personas[i], nil
}

// Next returns the sequential successor of index i, wrapping around the AI
// personas. The human slot never appears in sequential rotation; the human
// only speaks when explicitly selected.
func (r *Roster) Next(i int) int {
	return (i + 1) % len(r.personas)
}

// IndexOf returns the roster index for a persona name, or -1 when the name
// is unknown. The human name maps to HumanIndex.
func (r *Roster) IndexOf(name string) int {
	if name == Human {
		return r.HumanIndex()
	}
	if i, ok := r.byName[name]; ok {
		return i
	}
	return -1
}

// ByRole returns the index of the persona holding the given role, or -1 when
// no roster member holds it.
func (r *Roster) ByRole(role Role) int {
	if i, ok := r.byRole[role]; ok {
		return i
	}
	return -1
}

// Speakers enumerates every selectable participant in index order, the human
// last. This is the exact ordering the selection tool's index enum is built
// from.
func (r *Roster) Speakers() []string {
	out := make([]string, 0, len(r.personas)+1)
	for _, p := range r.personas {
		out = append(out, p.Name)
	}
	return append(out, Human)
}

// Personas returns a copy of the AI participant list.
func (r *Roster) Personas() []Persona {
	out := make([]Persona, len(r.personas))
	copy(out, r.personas)
	return out
}
