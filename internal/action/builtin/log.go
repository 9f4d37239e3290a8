package builtin

import (
	"context"
	"fmt"
	"log/slog"

	"tools.zach/dev/flagman/internal/action"
	"tools.zach/dev/flagman/internal/logger"
)

func logFactory(opts Options) action.Factory {
	return func(args []string) (action.Action, error) {
		if err := action.CheckArgs(args, 1, 2); err != nil {
			return nil, err
		}
		level := logger.LevelInfo
		if len(args) == 2 {
			if !logger.ValidLevel(args[1]) {
				return nil, fmt.Errorf("%w: unknown log level %q", action.ErrArgs, args[1])
			}
			level = logger.ParseLevel(args[1])
		}
		msg := args[0]
		return action.StepFunc(func() error {
			opts.logger().Log(context.Background(), level, msg, slog.String("source", "action"))
			return nil
		}), nil
	}
}
