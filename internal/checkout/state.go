package checkout

import (
	"fmt"

	shoperrors "github.com/abgdnv/storesim/internal/errors"
)

// State is the position of a checkout in its lifecycle.
//
//	Assembling -> AwaitingPayment -> Committed
//	                              \-> Rejected
type State int

const (
	StateAssembling State = iota
	StateAwaitingPayment
	StateCommitted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateAssembling:
		return "assembling"
	case StateAwaitingPayment:
		return "awaiting_payment"
	case StateCommitted:
		return "committed"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateCommitted, StateRejected:
		return true
	case StateAssembling, StateAwaitingPayment:
		return false
	default:
		return false
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TransitionError is returned when an operation is not allowed in the current state.
type TransitionError struct {
	Op    string
	State State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s in state %s", shoperrors.ErrInvalidTransition, e.Op, e.State)
}

func (e *TransitionError) Unwrap() error {
	return shoperrors.ErrInvalidTransition
}
