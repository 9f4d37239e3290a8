package signals

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// ///////////////////////////////////////////////
// Registrar
// ///////////////////////////////////////////////

// ErrAlreadyInstalled is returned by a second call to [Registrar.Install].
var ErrAlreadyInstalled = errors.New("signal handlers already installed")

// Registrar subscribes to the occupied signals and feeds every delivery into
// a [PendingSet].
//
// The Go runtime owns the real OS-level handler and only enqueues the signal
// for os/signal. The forwarder goroutine started by [Registrar.Install] then
// performs a single [PendingSet.Add] per delivery: no I/O, no logging, no
// action logic.
type Registrar struct {
	// notifier performs the actual subscription.
	notifier Notifier
	// pending receives every forwarded delivery.
	pending *PendingSet
	// ch is the os/signal delivery channel; nil until Install subscribes.
	ch chan os.Signal
	// done is closed by [Registrar.Stop] to end the forwarder.
	done chan struct{}
	// once makes [Registrar.Stop] idempotent.
	once sync.Once
	// installed lists the signals passed to the notifier, in install order.
	installed []Signal
}

// NewRegistrar creates a Registrar that forwards into pending.
func NewRegistrar(n Notifier, pending *PendingSet) *Registrar {
	return &Registrar{
		notifier: n,
		pending:  pending,
		done:     make(chan struct{}),
	}
}

// Install subscribes to each signal in occupied. Signals not listed keep
// their default OS disposition. Calling Install with an empty list is a
// no-op that installs nothing.
func (r *Registrar) Install(occupied []Signal) error {
	if r.installed != nil {
		return ErrAlreadyInstalled
	}

	osSigs := make([]os.Signal, 0, len(occupied))
	for _, s := range occupied {
		o, err := s.OS()
		if err != nil {
			return fmt.Errorf("install handler for %s: %w", s, err)
		}
		osSigs = append(osSigs, o)
	}
	if len(osSigs) == 0 {
		slog.Debug("no occupied signals; nothing to install")
		return nil
	}

	r.ch = make(chan os.Signal, len(osSigs))
	r.notifier.Notify(r.ch, osSigs...)
	r.installed = append([]Signal(nil), occupied...)
	for _, s := range occupied {
		slog.Debug("registered signal handler", "signal", s)
	}

	go r.forward(r.ch)
	return nil
}

// forward moves deliveries from the os/signal channel into the pending set
// until [Registrar.Stop] is called.
func (r *Registrar) forward(ch <-chan os.Signal) {
	for {
		select {
		case <-r.done:
			return
		case sig := <-ch:
			if s, ok := FromOS(sig); ok {
				r.pending.Add(s)
			}
		}
	}
}

// Installed returns the signals that were subscribed, in install order.
func (r *Registrar) Installed() []Signal {
	return append([]Signal(nil), r.installed...)
}

// Stop unsubscribes from all signals and ends the forwarder. It is safe to
// call more than once.
func (r *Registrar) Stop() {
	r.once.Do(func() {
		if r.ch != nil {
			r.notifier.Stop(r.ch)
		}
		close(r.done)
	})
}
