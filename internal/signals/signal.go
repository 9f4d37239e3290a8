// Package signals owns the boundary between asynchronous OS signal delivery
// and the synchronous dispatch loop.
//
// It defines the fixed set of [Signal] identifiers flagman is willing to
// handle, the [PendingSet] that records which of them are awaiting dispatch,
// and the [Registrar] that subscribes to exactly the occupied signals.
package signals

import (
	"errors"
	"fmt"
	"strings"
)

// ///////////////////////////////////////////////
// Signal Identifiers
// ///////////////////////////////////////////////

// Signal identifies one of the handled OS signals. The zero value is invalid.
type Signal uint8

const (
	USR1 Signal = iota + 1
	USR2
	HUP
)

// Handled lists every signal that may carry a bundle, in the fixed order used
// for bundle construction, CLI flag generation, and config validation.
var Handled = []Signal{USR1, USR2, HUP}

// ErrUnknownSignal is returned by [Parse] for names outside [Handled].
var ErrUnknownSignal = errors.New("unknown signal")

var shortNames = map[Signal]string{
	USR1: "usr1",
	USR2: "usr2",
	HUP:  "hup",
}

// Name returns the short lower-case name used in config keys and CLI flags,
// e.g. "usr1".
func (s Signal) Name() string {
	if n, ok := shortNames[s]; ok {
		return n
	}
	return fmt.Sprintf("signal(%d)", uint8(s))
}

// String returns the conventional upper-case form, e.g. "SIGUSR1".
func (s Signal) String() string {
	if n, ok := shortNames[s]; ok {
		return "SIG" + strings.ToUpper(n)
	}
	return s.Name()
}

// Valid reports whether s is one of the [Handled] signals.
func (s Signal) Valid() bool {
	_, ok := shortNames[s]
	return ok
}

// mask returns the bit that represents s inside a [PendingSet].
func (s Signal) mask() uint32 {
	return 1 << uint32(s)
}

// Parse resolves a signal name. It accepts the short form ("usr1"), the bare
// upper-case form ("USR1"), and the full form ("SIGUSR1").
func Parse(name string) (Signal, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "sig")
	for s, short := range shortNames {
		if short == n {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownSignal, name)
}
