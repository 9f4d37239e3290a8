// Windows has no SIGUSR1/SIGUSR2 and delivers no SIGHUP to console
// processes, so no handled signal can be mapped there.

//go:build windows

package signals

import (
	"errors"
	"fmt"
	"os"
)

// ErrUnsupported is returned by [Signal.OS] on platforms without POSIX
// user signals.
var ErrUnsupported = errors.New("signal dispatch is not supported on windows")

// OS always fails on Windows.
func (s Signal) OS() (os.Signal, error) {
	return nil, fmt.Errorf("%s: %w", s, ErrUnsupported)
}

// FromOS never matches on Windows.
func FromOS(os.Signal) (Signal, bool) {
	return 0, false
}
