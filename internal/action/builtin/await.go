package builtin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tools.zach/dev/flagman/internal/action"
	"tools.zach/dev/flagman/internal/watch"
)

// errAwaitTimeout is returned when the awaited file does not change in time.
var errAwaitTimeout = errors.New("timed out waiting for file")

// awaitAction blocks its step until a file is created or written. Changes
// made between steps are ignored.
type awaitAction struct {
	w       *watch.Watcher
	timeout time.Duration
}

func awaitFactory(_ Options) action.Factory {
	return func(args []string) (action.Action, error) {
		if err := action.CheckArgs(args, 2, 2); err != nil {
			return nil, err
		}
		timeout, err := time.ParseDuration(args[1])
		if err != nil || timeout <= 0 {
			return nil, fmt.Errorf("%w: timeout %q must be a positive duration", action.ErrArgs, args[1])
		}
		w, err := watch.New(args[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", action.ErrArgs, err)
		}
		return &awaitAction{w: w, timeout: timeout}, nil
	}
}

func (a *awaitAction) Step() (action.Outcome, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.w.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return action.Continue, fmt.Errorf("%w: %s after %s", errAwaitTimeout, a.w.Path(), a.timeout)
		}
		return action.Continue, err
	}
	return action.Continue, nil
}

func (a *awaitAction) Close() error { return a.w.Close() }
