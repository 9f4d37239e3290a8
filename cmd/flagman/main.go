// Package main implements the flagman daemon, which runs configured action
// bundles when the process receives SIGUSR1, SIGUSR2 or SIGHUP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	rootpkg "tools.zach/dev/flagman"
	"tools.zach/dev/flagman/internal/action"
	"tools.zach/dev/flagman/internal/action/builtin"
	"tools.zach/dev/flagman/internal/atomicfile"
	"tools.zach/dev/flagman/internal/paths"
	"tools.zach/dev/flagman/internal/signals"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//   - goreleaser: -X main.version={{.Version}}  -> "0.1.0"
//   - make build: -X main.version=$(VERSION)    -> "0.0.0-dev+05ffee5"
//
// When ldflags are not set (bare go build), resolveVersion reads the VCS info
// that Go embeds automatically.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags at build time it is returned as-is; otherwise VCS revision and dirty
// state embedded by the Go toolchain are used to construct a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Exit Codes
// ///////////////////////////////////////////////

const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
)

// exitError carries the process exit code for err out of the command tree.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// configError marks err as a configuration failure.
func configError(err error) error {
	return &exitError{code: exitConfig, err: err}
}

// exitCode maps an error returned by the root command to a process exit code.
// Errors without an explicit code are runtime failures.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	err := newRootCmd(os.Stdout, os.Stderr).Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "flagman: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// ///////////////////////////////////////////////
// Commands
// ///////////////////////////////////////////////

// options holds the root command's flags.
type options struct {
	configPath string
	dataDir    string
	pidFile    bool
	noSystemd  bool
	quiet      bool
	verbose    int
	list       bool
	// commands holds the raw --usr1/--usr2/--hup values, keyed by signal.
	commands map[signals.Signal]*[]string

	// notifier subscribes to OS signals; nil means os/signal.
	notifier signals.Notifier
	// environ replaces the process environment when non-nil.
	environ map[string]string
}

// newRootCmd builds the flagman command tree writing to stdout and stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &options{commands: make(map[signals.Signal]*[]string, len(signals.Handled))}

	root := &cobra.Command{
		Use:   "flagman",
		Short: "Perform arbitrary actions on signals",
		Long: `flagman waits for SIGUSR1, SIGUSR2 and SIGHUP and runs the actions
configured for each signal, in order, once per delivery.

Actions come from the config file and from --usr1, --usr2 and --hup, each of
which takes one quoted "ACTION [ARG...]" command and may be repeated. The
command is split like a shell would, so arguments may be quoted:

  flagman --usr1 'print "hello there"' --usr1 'delayed_print bye 5' --hup 'log reload'

SIGTERM or SIGINT stops flagman once the running actions finish, then closes
every action. A second SIGTERM or SIGINT exits immediately with status 1.

Run 'flagman list' to see the available actions.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.list {
				return listActions(stdout)
			}
			term, stopTerm := terminationChannel()
			defer stopTerm()
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			defer watchTermination(term, cancel, os.Exit)()
			return runDaemon(ctx, o, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return configError(err)
	})

	flags := root.Flags()
	flags.BoolVarP(&o.list, "list", "l", false, "list known actions and exit")
	for _, sig := range signals.Handled {
		o.commands[sig] = new([]string)
		flags.StringArrayVar(o.commands[sig], sig.Name(), nil, fmt.Sprintf("add an action for %s, e.g. \"print hello\"", sig))
	}
	persistent := root.PersistentFlags()
	persistent.StringVarP(&o.configPath, "config", "c", "", "config file (default <data-dir>/flagman.toml if present)")
	persistent.StringVar(&o.dataDir, "data-dir", paths.Default().Root, "directory for the config file and PID file")

	flags.BoolVar(&o.pidFile, "pid-file", false, "hold a locked PID file in the data directory")
	flags.BoolVar(&o.noSystemd, "no-systemd", false, "do not notify systemd about status")
	flags.BoolVarP(&o.quiet, "quiet", "q", false, "only output critical messages; overrides --verbose")
	flags.CountVarP(&o.verbose, "verbose", "v", "increase the log level; pass multiple times for more verbosity")

	root.AddCommand(
		newListCmd(stdout),
		newVersionCmd(stdout),
		newInitConfigCmd(stdout, o),
	)
	return root
}

func newListCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listActions(stdout)
		},
	}
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "flagman version %s\n", resolveVersion())
		},
	}
}

// newInitConfigCmd writes the annotated default config. The target is the
// --config path when given, else the data directory's flagman.toml. An
// existing file is left alone unless --force is set.
func newInitConfigCmd(stdout io.Writer, o *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write an annotated example config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := o.configPath
			if target == "" {
				dp := paths.DataDir{Root: o.dataDir}
				if err := os.MkdirAll(dp.Root, 0o755); err != nil {
					return fmt.Errorf("create data dir: %w", err)
				}
				target = dp.Config()
			}
			write := atomicfile.Create
			if force {
				write = atomicfile.Write
			}
			if err := write(target, rootpkg.DefaultConfigTOML, 0o644); err != nil {
				if errors.Is(err, fs.ErrExist) {
					return fmt.Errorf("%s already exists; pass --force to overwrite", target)
				}
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(stdout, "wrote %s\n", target)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// ///////////////////////////////////////////////
// Action Listing
// ///////////////////////////////////////////////

// listActions prints every built-in action with its description and usage.
func listActions(w io.Writer) error {
	return writeActionList(w, builtin.Entries(builtin.Options{}))
}

// writeActionList renders entries as an aligned table:
//
//	print MESSAGE  - Print MESSAGE on every signal; ...
func writeActionList(w io.Writer, entries []action.Entry) error {
	heads := make([]string, len(entries))
	width := len("action [ARG...]")
	for i, e := range entries {
		heads[i] = strings.TrimSpace(e.Name + " " + e.Usage)
		width = max(width, len(heads[i]))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s - %s\n", width, "action [ARG...]", "description")
	b.WriteString(strings.Repeat("-", 80) + "\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%-*s - %s\n", width, heads[i], e.Description)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
