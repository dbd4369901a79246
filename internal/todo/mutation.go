package todo

import (
	"errors"
	"fmt"

	"heartwork/internal/service"
)

// MutationKind is the kind of optimistic change.
type MutationKind int

const (
	// KindToggle sets the completed flag of a task.
	KindToggle MutationKind = iota

	// KindDelete hides a task.
	KindDelete
)

func (k MutationKind) String() string {
	switch k {
	case KindToggle:
		return "toggle"
	case KindDelete:
		return "delete"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MutationState tracks an optimistic change from request to outcome.
// Pending is the only state with outgoing transitions.
type MutationState int

const (
	Pending MutationState = iota
	Confirmed
	RolledBack
)

func (s MutationState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when settling a mutation that is not pending.
var ErrInvalidTransition = errors.New("invalid mutation transition")

// Mutation is one optimistic change layered over the server's list.
type Mutation struct {
	ID        string
	Kind      MutationKind
	Category  string
	TaskID    string
	Completed bool // target value, toggles only
	State     MutationState
}

// applyTo returns t as seen through the mutation; hidden is true for deletes.
func (m *Mutation) applyTo(t service.Task) (out service.Task, hidden bool) {
	if m.TaskID != t.ID {
		return t, false
	}
	switch m.Kind {
	case KindDelete:
		return t, true
	case KindToggle:
		t.Completed = m.Completed
	}
	return t, false
}

func (m *Mutation) settle(to MutationState) error {
	if m.State != Pending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.State, to)
	}
	m.State = to
	return nil
}
