package checkout

import "errors"

// State is a step of the checkout state machine.
//
//	Idle -> Totaling -> DiscountApplied -> FundsChecked -> Committed
//	  \________\______________\________________\________-> Aborted
type State string

const (
	StateIdle            State = "idle"
	StateTotaling        State = "totaling"
	StateDiscountApplied State = "discount_applied"
	StateFundsChecked    State = "funds_checked"
	StateCommitted       State = "committed"
	StateAborted         State = "aborted"
)

// ErrIllegalTransition signals a bug in the engine, not a business failure.
var ErrIllegalTransition = errors.New("illegal checkout state transition")

var transitions = map[State][]State{
	StateIdle:            {StateTotaling, StateAborted},
	StateTotaling:        {StateDiscountApplied, StateAborted},
	StateDiscountApplied: {StateFundsChecked, StateAborted},
	StateFundsChecked:    {StateCommitted, StateAborted},
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateCommitted || s == StateAborted
}

func (s State) String() string { return string(s) }

// CanTransitionTo reports whether s -> next is an edge of the machine.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
