// OS signal mapping for Unix-like platforms, where SIGUSR1, SIGUSR2, and
// SIGHUP all exist.

//go:build !windows

package signals

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// ///////////////////////////////////////////////
// OS Mapping
// ///////////////////////////////////////////////

// OS returns the platform signal value for s.
func (s Signal) OS() (os.Signal, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSignal, uint8(s))
	}
	num := unix.SignalNum(s.String())
	if num == 0 {
		return nil, fmt.Errorf("signal %s not available on this platform", s)
	}
	return num, nil
}

// FromOS maps a delivered OS signal back to its [Signal]. The second result
// is false for signals outside [Handled].
func FromOS(sig os.Signal) (Signal, bool) {
	sys, ok := sig.(syscall.Signal)
	if !ok {
		return 0, false
	}
	s, err := Parse(unix.SignalName(sys))
	if err != nil {
		return 0, false
	}
	return s, true
}
