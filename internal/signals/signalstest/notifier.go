// Package signalstest provides a fake [signals.Notifier] for tests that need
// to raise signals without changing the test binary's real dispositions.
package signalstest

import (
	"os"
	"slices"
	"sync"
)

// Notifier records subscriptions and delivers raised signals to them the way
// os/signal does: a non-blocking send per subscribed channel.
type Notifier struct {
	mu   sync.Mutex
	subs map[chan<- os.Signal][]os.Signal
	// stops counts calls to Stop.
	stops int
}

// New returns an empty fake notifier.
func New() *Notifier {
	return &Notifier{subs: make(map[chan<- os.Signal][]os.Signal)}
}

// Notify records the subscription.
func (n *Notifier) Notify(ch chan<- os.Signal, sig ...os.Signal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs[ch] = append(n.subs[ch], sig...)
}

// Stop removes every subscription for ch.
func (n *Notifier) Stop(ch chan<- os.Signal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, ch)
	n.stops++
}

// Subscribed returns every signal currently subscribed on any channel.
func (n *Notifier) Subscribed() []os.Signal {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []os.Signal
	for _, sigs := range n.subs {
		out = append(out, sigs...)
	}
	return out
}

// Stops returns how many times Stop was called.
func (n *Notifier) Stops() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stops
}

// Raise delivers sig to every channel subscribed to it. It reports whether at
// least one subscriber accepted the delivery; a full channel drops it, as the
// runtime does.
func (n *Notifier) Raise(sig os.Signal) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	delivered := false
	for ch, sigs := range n.subs {
		if !slices.Contains(sigs, sig) {
			continue
		}
		select {
		case ch <- sig:
			delivered = true
		default:
		}
	}
	return delivered
}
