package x402

import (
	"fmt"

	"github.com/vitwit/x402-unlock/types"
)

// State is the phase of an unlock flow.
type State int

const (
	StateReady State = iota
	StateFetchingChallenge
	StateAwaitingSignature
	StateSubmittingPayment
	StateError
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFetchingChallenge:
		return "fetching"
	case StateAwaitingSignature:
		return "signing"
	case StateSubmittingPayment:
		return "paying"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Describe returns the text shown to a user while the flow is in s.
func (s State) Describe() string {
	switch s {
	case StateFetchingChallenge:
		return "Fetching payment details..."
	case StateAwaitingSignature:
		return "Sign payment in wallet..."
	case StateSubmittingPayment:
		return "Processing payment..."
	case StateError:
		return "Try Again"
	default:
		return "Unlock Content"
	}
}

// Busy reports whether an attempt owns the flow in s.
func (s State) Busy() bool {
	return s == StateFetchingChallenge || s == StateAwaitingSignature || s == StateSubmittingPayment
}

// Status is a snapshot of a flow. Requirement is set once a challenge was
// accepted, Result only in Ready after a successful attempt and Err only in
// Error.
type Status struct {
	State       State
	Requirement *types.PaymentRequirement
	Result      *types.UnlockResult
	Err         *types.X402Error
}

// Message is the human readable line for the status: the error in Error,
// the state description otherwise.
func (s Status) Message() string {
	if s.State == StateError && s.Err != nil {
		return s.Err.Error()
	}
	return s.State.Describe()
}

// TransitionCallback is invoked after every state change, outside the flow's
// lock, in the order the changes were made. Callbacks never run concurrently.
// One may be delivered on another goroutine than the one that made the
// change, so Start can return before its callback has run.
type TransitionCallback func(from State, to Status)
