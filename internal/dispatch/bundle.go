// Package dispatch turns configured action descriptors into per-signal
// bundles and runs the loop that steps those bundles when their signal is
// pending.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"

	"tools.zach/dev/flagman/internal/action"
	"tools.zach/dev/flagman/internal/signals"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Descriptor is a parsed but not yet instantiated action reference.
type Descriptor struct {
	Name string
	Args []string
}

// ParseCommand splits a command token list into a [Descriptor]. The first
// token is the action name; the rest are positional arguments.
func ParseCommand(tokens []string) (Descriptor, error) {
	if len(tokens) == 0 || tokens[0] == "" {
		return Descriptor{}, errors.New("empty action command")
	}
	return Descriptor{Name: tokens[0], Args: append([]string(nil), tokens[1:]...)}, nil
}

// Bundles maps each signal to its ordered action instances. Order is the
// configuration order and never changes after [Build].
type Bundles map[signals.Signal][]*action.Instance

// ErrNoActions is returned by [Build] when no action could be primed for any
// signal. Startup must abort: installing handlers that do nothing is pointless
// and almost always an operator mistake.
var ErrNoActions = errors.New("no actions configured")

// UnknownActionError describes a descriptor whose name is not registered.
// [Build] logs it and skips only that descriptor.
type UnknownActionError struct {
	Signal signals.Signal
	Name   string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q for %s", e.Name, e.Signal)
}

// ///////////////////////////////////////////////
// Builder
// ///////////////////////////////////////////////

// Build resolves and primes every descriptor in cfg, visiting signals in
// [signals.Handled] order and descriptors in their given order.
//
// Unknown names are logged and skipped. A [*action.SetupError] aborts the
// build: every instance created so far is closed and the error is returned.
// The int result is the number of primed instances across all signals; when
// it is zero the error is [ErrNoActions].
func Build(cfg map[signals.Signal][]Descriptor, reg action.Lookuper) (Bundles, int, error) {
	slog.Debug("creating action bundles")
	bundles := make(Bundles, len(signals.Handled))
	total := 0

	for _, sig := range signals.Handled {
		descs := cfg[sig]
		slog.Debug("creating action bundle", "signal", sig, "descriptors", len(descs))
		for _, d := range descs {
			entry, ok := reg.Lookup(d.Name)
			if !ok {
				err := &UnknownActionError{Signal: sig, Name: d.Name}
				slog.Warn("unknown action; skipping", "signal", sig, "action", d.Name, "error", err)
				continue
			}

			slog.Debug("priming action", "signal", sig, "action", d.Name, "args", d.Args)
			inst, err := action.New(d.Name, entry.Factory, d.Args)
			if err != nil {
				if closeErr := bundles.Close(); closeErr != nil {
					slog.Warn("closing partially built bundles", "error", closeErr)
				}
				return nil, 0, fmt.Errorf("%s: %w", sig, err)
			}
			bundles[sig] = append(bundles[sig], inst)
			total++
		}
	}

	if total == 0 {
		return nil, 0, ErrNoActions
	}
	return bundles, total, nil
}

// ///////////////////////////////////////////////
// Bundle Helpers
// ///////////////////////////////////////////////

// Occupied returns the signals with a non-empty bundle in [signals.Handled]
// order.
func (b Bundles) Occupied() []signals.Signal {
	var out []signals.Signal
	for _, sig := range signals.Handled {
		if len(b[sig]) > 0 {
			out = append(out, sig)
		} else {
			slog.Debug("no actions for signal; leaving default disposition", "signal", sig)
		}
	}
	return out
}

// Count returns the number of instances across all bundles.
func (b Bundles) Count() int {
	n := 0
	for _, bundle := range b {
		n += len(bundle)
	}
	return n
}

// Close closes every instance, including ones that already closed themselves
// (a no-op for those). Teardown errors are joined.
func (b Bundles) Close() error {
	var errs []error
	for _, sig := range signals.Handled {
		for _, inst := range b[sig] {
			if err := inst.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s action %q: %w", sig, inst.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// names returns the action names of a bundle, for logging.
func names(bundle []*action.Instance) []string {
	out := make([]string, len(bundle))
	for i, inst := range bundle {
		out[i] = inst.Name()
	}
	return out
}
