package builtin

import (
	"fmt"
	"os/exec"

	"tools.zach/dev/flagman/internal/action"
)

// execAction runs an external command to completion on every step.
type execAction struct {
	opts Options
	path string
	args []string
}

func execFactory(opts Options) action.Factory {
	return func(args []string) (action.Action, error) {
		if err := action.CheckArgs(args, 1, -1); err != nil {
			return nil, err
		}
		path, err := exec.LookPath(args[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", action.ErrArgs, err)
		}
		return &execAction{opts: opts, path: path, args: args[1:]}, nil
	}
}

func (e *execAction) Step() (action.Outcome, error) {
	cmd := exec.Command(e.path, e.args...)
	cmd.Stdout = e.opts.Stdout
	cmd.Stderr = e.opts.Stderr
	if err := cmd.Run(); err != nil {
		return action.Continue, fmt.Errorf("run %s: %w", e.path, err)
	}
	return action.Continue, nil
}

func (e *execAction) Close() error { return nil }
