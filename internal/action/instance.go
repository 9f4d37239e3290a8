package action

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ///////////////////////////////////////////////
// Lifecycle State
// ///////////////////////////////////////////////

// State is the lifecycle position of an [Instance].
type State int32

const (
	Uninitialized State = iota
	Ready
	Running
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ///////////////////////////////////////////////
// Instance
// ///////////////////////////////////////////////

// Instance owns one [Action] and enforces its lifecycle:
//
//	Uninitialized -> Ready -> Running -> Ready ... -> Closed
//
// Instances are never shared: two descriptors naming the same action produce
// two instances with independent state.
type Instance struct {
	// name is the registry name the instance was created from.
	name string
	// args are the creation arguments, kept for logging.
	args []string
	// impl is the primed action.
	impl Action
	// state is read by shutdown code that may run on another goroutine.
	state atomic.Int32
	// closeOnce guarantees teardown runs exactly once.
	closeOnce sync.Once
	// closeErr is the result of the single teardown.
	closeErr error
}

// New runs factory with args and returns a Ready instance. A factory failure
// is returned as a [*SetupError].
func New(name string, factory Factory, args []string) (*Instance, error) {
	inst := &Instance{name: name, args: append([]string(nil), args...)}
	impl, err := factory(inst.args)
	if err != nil {
		return nil, &SetupError{Action: name, Args: inst.args, Err: err}
	}
	if impl == nil {
		return nil, &SetupError{Action: name, Args: inst.args, Err: fmt.Errorf("factory returned no action")}
	}
	inst.impl = impl
	inst.state.Store(int32(Ready))
	return inst, nil
}

// Name returns the registry name of the action.
func (i *Instance) Name() string { return i.name }

// Args returns a copy of the creation arguments.
func (i *Instance) Args() []string { return append([]string(nil), i.args...) }

// State returns the current lifecycle state.
func (i *Instance) State() State { return State(i.state.Load()) }

// Closed reports whether the instance has been closed.
func (i *Instance) Closed() bool { return i.State() == Closed }

// Step advances the action by one unit. It is valid only from Ready.
//
// On a [SelfClose] outcome the instance is closed before Step returns; a
// teardown error is then reported as a [*StepError] alongside the outcome.
// Implementation errors and panics are returned as a [*StepError] and leave
// the instance Ready.
func (i *Instance) Step() (Outcome, error) {
	if !i.state.CompareAndSwap(int32(Ready), int32(Running)) {
		if i.Closed() {
			return Continue, ErrClosed
		}
		return Continue, ErrBusy
	}

	outcome, err := i.safeStep()

	if outcome == SelfClose {
		if closeErr := i.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	} else {
		// Close may have been called concurrently at shutdown; do not revive.
		i.state.CompareAndSwap(int32(Running), int32(Ready))
	}

	if err != nil {
		return outcome, &StepError{Action: i.name, Err: err}
	}
	return outcome, nil
}

// safeStep calls the implementation, converting a panic into an error so one
// misbehaving action cannot take the process down.
func (i *Instance) safeStep() (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, err = Continue, fmt.Errorf("panic: %v", r)
		}
	}()
	return i.impl.Step()
}

// Close moves the instance to Closed from any state and runs teardown the
// first time it is called. Later calls return the first call's result.
func (i *Instance) Close() error {
	i.closeOnce.Do(func() {
		i.state.Store(int32(Closed))
		if i.impl != nil {
			i.closeErr = i.impl.Close()
		}
	})
	return i.closeErr
}
