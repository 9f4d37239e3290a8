package action

import (
	"errors"
	"fmt"
	"strings"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

// ErrClosed is returned by [Instance.Step] on a closed instance. The
// dispatcher never steps closed instances, so seeing it indicates a bug.
var ErrClosed = errors.New("action is closed")

// ErrBusy is returned by [Instance.Step] when the instance is already
// running a step.
var ErrBusy = errors.New("action is already running")

// ErrArgs marks argument validation failures raised by factories.
var ErrArgs = errors.New("invalid arguments")

// ///////////////////////////////////////////////
// SetupError
// ///////////////////////////////////////////////

// SetupError reports that a [Factory] rejected its arguments. It is a fatal
// configuration problem.
type SetupError struct {
	Action string
	Args   []string
	Err    error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("set up action %q with args [%s]: %v", e.Action, strings.Join(e.Args, " "), e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// ///////////////////////////////////////////////
// StepError
// ///////////////////////////////////////////////

// StepError reports that an action failed while stepping. It is a runtime
// failure: the dispatcher logs it and moves on.
type StepError struct {
	Action string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step action %q: %v", e.Action, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ///////////////////////////////////////////////
// Argument Helpers
// ///////////////////////////////////////////////

// CheckArgs returns an [ErrArgs] error unless min <= len(args) <= max.
// A negative max means no upper bound.
func CheckArgs(args []string, min, max int) error {
	n := len(args)
	switch {
	case n < min && min == max:
		return fmt.Errorf("%w: want %d, got %d", ErrArgs, min, n)
	case n < min:
		return fmt.Errorf("%w: want at least %d, got %d", ErrArgs, min, n)
	case max >= 0 && n > max && min == max:
		return fmt.Errorf("%w: want %d, got %d", ErrArgs, max, n)
	case max >= 0 && n > max:
		return fmt.Errorf("%w: want at most %d, got %d", ErrArgs, max, n)
	}
	return nil
}
