// Termination signals on Windows. Only os.Interrupt exists; the runtime maps
// CTRL_BREAK_EVENT and console close onto it.

//go:build windows

package main

import (
	"os"
	"os/signal"
)

// ///////////////////////////////////////////////
// Signal Handling
// ///////////////////////////////////////////////

// terminationChannel subscribes to os.Interrupt. stop unsubscribes.
func terminationChannel() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt)
	return ch, func() { signal.Stop(ch) }
}
