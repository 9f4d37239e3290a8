package builtin

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tools.zach/dev/flagman/internal/action"
	"tools.zach/dev/flagman/internal/atomicfile"
)

func touchFactory(opts Options) action.Factory {
	return func(args []string) (action.Action, error) {
		if err := action.CheckArgs(args, 1, 1); err != nil {
			return nil, err
		}
		path := args[0]
		dir := filepath.Dir(path)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: directory %s does not exist", action.ErrArgs, dir)
		}
		return action.StepFunc(func() error {
			stamp := opts.Now().UTC().Format(time.RFC3339) + "\n"
			return atomicfile.Write(path, []byte(stamp), 0o644)
		}), nil
	}
}
