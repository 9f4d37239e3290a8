package builtin

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"tools.zach/dev/flagman/internal/action"
)

// sweepAction removes stale files below a directory.
type sweepAction struct {
	opts    Options
	dir     string
	pattern string
	maxAge  time.Duration
}

func sweepFactory(opts Options) action.Factory {
	return func(args []string) (action.Action, error) {
		if err := action.CheckArgs(args, 3, 3); err != nil {
			return nil, err
		}
		dir, pattern := args[0], filepath.ToSlash(args[1])
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", action.ErrArgs, dir)
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: bad glob %q", action.ErrArgs, args[1])
		}
		maxAge, err := time.ParseDuration(args[2])
		if err != nil || maxAge <= 0 {
			return nil, fmt.Errorf("%w: max age %q must be a positive duration", action.ErrArgs, args[2])
		}
		return &sweepAction{opts: opts, dir: dir, pattern: pattern, maxAge: maxAge}, nil
	}
}

func (s *sweepAction) Step() (action.Outcome, error) {
	cutoff := s.opts.Now().Add(-s.maxAge)
	fsys := os.DirFS(s.dir)

	matches, err := doublestar.Glob(fsys, s.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return action.Continue, fmt.Errorf("glob %s in %s: %w", s.pattern, s.dir, err)
	}

	var errs []error
	removed := 0
	for _, rel := range matches {
		info, err := fs.Stat(fsys, rel)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, filepath.FromSlash(rel))
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	slog.Debug("sweep finished", "dir", s.dir, "pattern", s.pattern, "matched", len(matches), "removed", removed)
	return action.Continue, errors.Join(errs...)
}

func (s *sweepAction) Close() error { return nil }
