package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"tools.zach/dev/flagman/internal/action"
	"tools.zach/dev/flagman/internal/logger"
	"tools.zach/dev/flagman/internal/signals"
)

// ///////////////////////////////////////////////
// Stats
// ///////////////////////////////////////////////

// Stats counts loop activity since start.
type Stats struct {
	// Dispatches is the number of bundles run.
	Dispatches uint64
	// Steps is the number of instance steps attempted.
	Steps uint64
	// Failures is the number of steps that returned an error.
	Failures uint64
}

// ///////////////////////////////////////////////
// Loop
// ///////////////////////////////////////////////

// Loop bridges asynchronous signal delivery into synchronous, ordered
// bundle execution. It runs on a single goroutine.
type Loop struct {
	bundles Bundles
	pending *signals.PendingSet

	// OnDispatch, if set, is called on the loop goroutine after each bundle
	// has run and its pending mark has been cleared.
	OnDispatch func(sig signals.Signal, st Stats)

	dispatches atomic.Uint64
	steps      atomic.Uint64
	failures   atomic.Uint64
}

// NewLoop creates a loop over bundles, woken by pending.
func NewLoop(bundles Bundles, pending *signals.PendingSet) *Loop {
	return &Loop{bundles: bundles, pending: pending}
}

// Stats returns a snapshot of the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Dispatches: l.dispatches.Load(),
		Steps:      l.steps.Load(),
		Failures:   l.failures.Load(),
	}
}

// Run blocks until a signal is pending, drains every pending signal, and
// repeats. It returns only when ctx is done, with ctx's error. The context is
// checked between bundles; a running step is never interrupted.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("starting event loop")
	for {
		logger.Trace(slog.Default(), "pausing for signal")
		if err := l.pending.Wait(ctx); err != nil {
			return err
		}
		logger.Trace(slog.Default(), "woke for signal")
		if err := l.drain(ctx); err != nil {
			return err
		}
	}
}

// drain dispatches pending signals until none remain. The pending mark of a
// signal is lowered only after its whole bundle has run, so a re-delivery
// that arrives mid-bundle is absorbed into the current dispatch.
func (l *Loop) drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		sig, ok := l.pending.Next()
		if !ok {
			return nil
		}
		slog.Debug("found raised flag", "signal", sig)
		l.dispatch(sig)
		slog.Debug("lowering flag", "signal", sig)
		l.pending.Clear(sig)

		if l.OnDispatch != nil {
			l.OnDispatch(sig, l.Stats())
		}
	}
}

// dispatch steps every open instance of sig's bundle exactly once, in order.
// Failures are reported and never stop the remaining instances.
func (l *Loop) dispatch(sig signals.Signal) {
	bundle := l.bundles[sig]
	slog.Debug("taking actions", "signal", sig, "actions", names(bundle))
	l.dispatches.Add(1)

	for _, inst := range bundle {
		if inst.Closed() {
			logger.Trace(slog.Default(), "skipping closed action", "signal", sig, "action", inst.Name())
			continue
		}

		slog.Debug("taking action", "signal", sig, "action", inst.Name())
		l.steps.Add(1)
		out, err := inst.Step()

		switch {
		case errors.Is(err, action.ErrClosed):
			logger.Fail(slog.Default(), "stepped a closed action", "signal", sig, "action", inst.Name())
			l.failures.Add(1)
		case err != nil:
			slog.Error("action step failed", "signal", sig, "action", inst.Name(), "error", err)
			l.failures.Add(1)
		}
		if out == action.SelfClose {
			slog.Info("action closed itself", "signal", sig, "action", inst.Name())
		}
		slog.Debug("done taking action", "signal", sig, "action", inst.Name())
	}
}
