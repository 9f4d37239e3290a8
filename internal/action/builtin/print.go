package builtin

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"tools.zach/dev/flagman/internal/action"
)

// printAction announces every lifecycle stage. It is mostly useful for
// checking a configuration end to end.
type printAction struct {
	out io.Writer
	msg string
}

func newPrint(out io.Writer, msg string) *printAction {
	fmt.Fprintln(out, "init")
	return &printAction{out: out, msg: msg}
}

func (p *printAction) Step() (action.Outcome, error) {
	_, err := fmt.Fprintln(p.out, p.msg)
	return action.Continue, err
}

func (p *printAction) Close() error {
	_, err := fmt.Fprintln(p.out, "cleanup")
	return err
}

func printFactory(opts Options) action.Factory {
	return func(args []string) (action.Action, error) {
		if err := action.CheckArgs(args, 1, 1); err != nil {
			return nil, err
		}
		return newPrint(opts.Stdout, args[0]), nil
	}
}

func delayedPrintFactory(opts Options) action.Factory {
	return func(args []string) (action.Action, error) {
		if err := action.CheckArgs(args, 2, 2); err != nil {
			return nil, err
		}
		secs, err := strconv.Atoi(args[1])
		if err != nil || secs < 0 {
			return nil, fmt.Errorf("%w: delay %q is not a non-negative number of seconds", action.ErrArgs, args[1])
		}
		inner := newPrint(opts.Stdout, args[0])
		return action.Delay(inner, time.Duration(secs)*time.Second, func() {
			fmt.Fprintln(opts.Stdout, "finished delaying")
		}), nil
	}
}

func printOnceFactory(opts Options) action.Factory {
	return func(args []string) (action.Action, error) {
		if err := action.CheckArgs(args, 1, 1); err != nil {
			return nil, err
		}
		return action.Once(newPrint(opts.Stdout, args[0])), nil
	}
}
