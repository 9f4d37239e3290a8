package signals

import (
	"os"
	"os/signal"
)

// Notifier abstracts OS signal subscription so tests can deliver signals
// without touching the process's real signal dispositions.
type Notifier interface {
	Notify(ch chan<- os.Signal, sig ...os.Signal)
	Stop(ch chan<- os.Signal)
}

type osNotifier struct{}

// OSNotifier returns the production [Notifier] backed by os/signal.
func OSNotifier() Notifier {
	return osNotifier{}
}

func (osNotifier) Notify(ch chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(ch, sig...)
}

func (osNotifier) Stop(ch chan<- os.Signal) {
	signal.Stop(ch)
}
