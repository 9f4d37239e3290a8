// Package notify reports daemon state to systemd through the service
// notification protocol: newline separated KEY=VALUE assignments sent as one
// datagram to the socket named by $NOTIFY_SOCKET.
//
// Outside systemd the socket is absent. Unless debug is enabled every failure
// is swallowed so the daemon behaves the same with or without a supervisor.
package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/coreos/go-systemd/v22/daemon"
)

// SocketEnv is the environment variable systemd sets for Type=notify units.
const SocketEnv = "NOTIFY_SOCKET"

// Well-known states.
const (
	Ready    = daemon.SdNotifyReady
	Stopping = daemon.SdNotifyStopping
)

// ErrNoSocket is reported in debug mode when $NOTIFY_SOCKET is unset.
var ErrNoSocket = errors.New(SocketEnv + " is not set")

// Status formats a free-form STATUS= assignment.
func Status(format string, args ...any) string {
	return "STATUS=" + fmt.Sprintf(format, args...)
}

// ///////////////////////////////////////////////
// Notifier
// ///////////////////////////////////////////////

// Notifier sends state assignments to the service manager. A nil *Notifier
// is valid and sends nothing.
type Notifier struct {
	debug   bool
	enabled atomic.Bool
}

// New returns a Notifier for the socket named by $NOTIFY_SOCKET. With debug
// unset it never fails: a missing socket yields a Notifier that drops every
// message.
func New(debug bool) (*Notifier, error) {
	n := &Notifier{debug: debug}
	if os.Getenv(SocketEnv) == "" {
		if debug {
			return nil, ErrNoSocket
		}
		slog.Debug("systemd notify socket not set")
		return n, nil
	}
	n.enabled.Store(true)
	return n, nil
}

// Enabled reports whether messages will actually be sent.
func (n *Notifier) Enabled() bool {
	return n != nil && n.enabled.Load()
}

// Notify sends the given assignments as a single datagram.
func (n *Notifier) Notify(states ...string) error {
	if n == nil || len(states) == 0 {
		return nil
	}
	if !n.enabled.Load() {
		if n.debug {
			return ErrNoSocket
		}
		return nil
	}

	msg := strings.Join(states, "\n")
	sent, err := daemon.SdNotify(false, msg)
	switch {
	case err != nil:
		if n.debug {
			return fmt.Errorf("send %q: %w", msg, err)
		}
		slog.Debug("systemd notify failed", "state", msg, "error", err)
	case !sent && n.debug:
		return ErrNoSocket
	}
	return nil
}

// Close disables the notifier. Further calls to Notify send nothing.
func (n *Notifier) Close() error {
	if n != nil {
		n.enabled.Store(false)
	}
	return nil
}
