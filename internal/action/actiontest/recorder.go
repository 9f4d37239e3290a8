// Package actiontest provides a recording [action.Action] for tests of the
// lifecycle, bundle builder, and dispatch loop.
package actiontest

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"tools.zach/dev/flagman/internal/action"
)

// ///////////////////////////////////////////////
// Log
// ///////////////////////////////////////////////

// Log is a goroutine-safe, ordered record of lifecycle events shared by many
// recorders. Events are "step:<label>" and "close:<label>".
type Log struct {
	mu     sync.Mutex
	events []string
}

func (l *Log) add(ev string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

// Events returns every recorded event in order.
func (l *Log) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// Steps returns the labels of step events in order.
func (l *Log) Steps() []string {
	return l.filter("step:")
}

// Closes returns the labels of close events in order.
func (l *Log) Closes() []string {
	return l.filter("close:")
}

func (l *Log) filter(prefix string) []string {
	var out []string
	for _, ev := range l.Events() {
		if rest, ok := strings.CutPrefix(ev, prefix); ok {
			out = append(out, rest)
		}
	}
	return out
}

// ///////////////////////////////////////////////
// Recorder
// ///////////////////////////////////////////////

// Recorder is an action that records each step and close into a [Log].
type Recorder struct {
	Label string
	Log   *Log
	// Fail, when non-nil, is returned from every step.
	Fail error
	// Panic makes every step panic after recording.
	Panic bool
	// SelfCloseAfter makes the Nth step report SelfClose. Zero disables it.
	SelfCloseAfter int
	// CloseErr is returned from Close.
	CloseErr error

	steps  atomic.Int32
	closes atomic.Int32
}

// Step records the step and applies the configured behavior.
func (r *Recorder) Step() (action.Outcome, error) {
	n := r.steps.Add(1)
	if r.Log != nil {
		r.Log.add("step:" + r.Label)
	}
	if r.Panic {
		panic("recorder " + r.Label + " panicked")
	}
	if r.Fail != nil {
		return action.Continue, r.Fail
	}
	if r.SelfCloseAfter > 0 && int(n) >= r.SelfCloseAfter {
		return action.SelfClose, nil
	}
	return action.Continue, nil
}

// Close records the close.
func (r *Recorder) Close() error {
	r.closes.Add(1)
	if r.Log != nil {
		r.Log.add("close:" + r.Label)
	}
	return r.CloseErr
}

// StepCount returns how many times Step ran.
func (r *Recorder) StepCount() int { return int(r.steps.Load()) }

// CloseCount returns how many times Close ran.
func (r *Recorder) CloseCount() int { return int(r.closes.Load()) }

// ///////////////////////////////////////////////
// Registry Entries
// ///////////////////////////////////////////////

// ErrFailing is the error returned by the "fail" entry's steps.
var ErrFailing = errors.New("recorder: configured failure")

// Entries returns registry entries backed by recorders writing to log:
//
//	record <label>   records steps
//	fail <label>     records steps and fails each one
//	once <label>     records one step, then self-closes
//	reject           always fails creation
func Entries(log *Log) []action.Entry {
	labelled := func(build func(label string) *Recorder) action.Factory {
		return func(args []string) (action.Action, error) {
			if err := action.CheckArgs(args, 1, 1); err != nil {
				return nil, err
			}
			return build(args[0]), nil
		}
	}
	return []action.Entry{
		{
			Name: "record",
			Factory: labelled(func(l string) *Recorder {
				return &Recorder{Label: l, Log: log}
			}),
		},
		{
			Name: "fail",
			Factory: labelled(func(l string) *Recorder {
				return &Recorder{Label: l, Log: log, Fail: ErrFailing}
			}),
		},
		{
			Name: "once",
			Factory: labelled(func(l string) *Recorder {
				return &Recorder{Label: l, Log: log, SelfCloseAfter: 1}
			}),
		},
		{
			Name: "reject",
			Factory: func(args []string) (action.Action, error) {
				return nil, action.ErrArgs
			},
		},
	}
}
