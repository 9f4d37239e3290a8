// Package action defines the stateful unit flagman runs when a signal is
// dispatched, and the lifecycle state machine that guards every instance.
//
// An [Action] is created once from its arguments by a [Factory], stepped any
// number of times, and closed exactly once. Implementations never manage
// their own lifecycle state; [Instance] does that for them.
package action

import "fmt"

// ///////////////////////////////////////////////
// Outcome
// ///////////////////////////////////////////////

// Outcome is the result of a successful step.
type Outcome int

const (
	// Continue means the action may be stepped again.
	Continue Outcome = iota
	// SelfClose means the action has decided never to run again. The owning
	// [Instance] closes it immediately after the step returns.
	SelfClose
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case SelfClose:
		return "self-close"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ///////////////////////////////////////////////
// Action
// ///////////////////////////////////////////////

// Action is one stateful unit of work. Its private state is established by
// the [Factory] that built it.
type Action interface {
	// Step performs one observable unit of the action's effect.
	Step() (Outcome, error)
	// Close runs teardown logic. [Instance] guarantees it is called at most
	// once.
	Close() error
}

// Factory creates a primed Action from positional string arguments. Invalid
// arguments must be reported as an error, never deferred to Step.
type Factory func(args []string) (Action, error)

// StepFunc adapts a plain function into an Action with no teardown.
type StepFunc func() error

// Step calls f and always continues.
func (f StepFunc) Step() (Outcome, error) {
	return Continue, f()
}

// Close is a no-op.
func (StepFunc) Close() error { return nil }
