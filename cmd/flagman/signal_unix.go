// Termination signals on non-Windows platforms: SIGINT from a terminal and
// SIGTERM from process managers. Neither ever carries an action bundle.

//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// ///////////////////////////////////////////////
// Signal Handling
// ///////////////////////////////////////////////

// terminationChannel subscribes to SIGINT and SIGTERM. The buffer holds two
// deliveries so a quick second signal is not lost while the first is being
// handled. stop unsubscribes.
func terminationChannel() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch, func() { signal.Stop(ch) }
}
