package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/shlex"

	"tools.zach/dev/flagman/internal/action/builtin"
	"tools.zach/dev/flagman/internal/config"
	"tools.zach/dev/flagman/internal/dispatch"
	"tools.zach/dev/flagman/internal/logger"
	"tools.zach/dev/flagman/internal/notify"
	"tools.zach/dev/flagman/internal/paths"
	"tools.zach/dev/flagman/internal/signals"
)

// ///////////////////////////////////////////////
// Configuration
// ///////////////////////////////////////////////

// loadConfig layers the config file, FLAGMAN_* variables and command-line
// actions on top of the defaults. It returns the file that was read, or ""
// when none was found. Every error is a configuration failure.
func loadConfig(o *options) (*config.Config, string, error) {
	path := o.configPath
	if path == "" {
		path, _ = paths.DataDir{Root: o.dataDir}.FindConfig()
	}

	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, "", configError(err)
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(o.environ); err != nil {
		return nil, "", configError(err)
	}

	for _, sig := range signals.Handled {
		raw := o.commands[sig]
		if raw == nil {
			continue
		}
		for _, command := range *raw {
			tokens, err := shlex.Split(command)
			if err != nil {
				return nil, "", configError(fmt.Errorf("--%s %q: %w", sig.Name(), command, err))
			}
			if len(tokens) == 0 {
				return nil, "", configError(fmt.Errorf("--%s: empty action command", sig.Name()))
			}
			cfg.AddCommand(sig, tokens)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", configError(err)
	}
	return cfg, path, nil
}

// ///////////////////////////////////////////////
// Daemon
// ///////////////////////////////////////////////

// runDaemon builds the action bundles, installs handlers for the occupied
// signals and dispatches until ctx is done. Actions are closed before it
// returns.
func runDaemon(ctx context.Context, o *options, stdout, stderr io.Writer) error {
	cfg, cfgPath, err := loadConfig(o)
	if err != nil {
		return err
	}

	level := logger.VerbosityLevel(o.quiet, o.verbose, logger.ParseLevel(cfg.Log.Level))
	log, logCloser, err := logger.NewLogger(logger.Options{
		Path:      cfg.Log.File,
		Level:     level,
		MaxSizeMB: cfg.Log.MaxSizeMB,
		Console:   stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("flagman starting", "version", resolveVersion(), "pid", os.Getpid(), "config", cfgPath, "level", logger.LevelName(level))

	if o.pidFile {
		dp := paths.DataDir{Root: o.dataDir}
		if err := os.MkdirAll(dp.Root, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		pid, err := acquirePID(dp)
		if err != nil {
			return err
		}
		defer pid.Release()
	}

	descs, err := cfg.Descriptors()
	if err != nil {
		return configError(err)
	}

	reg := builtin.Registry(builtin.Options{Stdout: stdout, Stderr: stderr, Logger: log})
	bundles, count, err := dispatch.Build(descs, reg)
	if err != nil {
		if errors.Is(err, dispatch.ErrNoActions) {
			logger.Fail(log, "no actions configured; exiting")
		} else {
			logger.Fail(log, "action setup failed; exiting", "error", err)
		}
		return configError(err)
	}
	defer func() {
		if err := bundles.Close(); err != nil {
			slog.Error("closing actions", "error", err)
		}
		slog.Debug("actions closed")
	}()

	pending := signals.NewPendingSet()
	notifier := o.notifier
	if notifier == nil {
		notifier = signals.OSNotifier()
	}
	registrar := signals.NewRegistrar(notifier, pending)
	if err := registrar.Install(bundles.Occupied()); err != nil {
		return fmt.Errorf("install signal handlers: %w", err)
	}
	defer registrar.Stop()

	sd := openNotifier(cfg, o)
	defer sd.Close()

	summary := bundleSummary(bundles)
	slog.Info("waiting for signals", "actions", count, "bundles", summary)
	if err := sd.Notify(notify.Ready, notify.Status("waiting for signals; %s", summary)); err != nil {
		slog.Error("systemd notify failed", "error", err)
	}

	loop := dispatch.NewLoop(bundles, pending)
	loop.OnDispatch = func(sig signals.Signal, st dispatch.Stats) {
		if err := sd.Notify(notify.Status("handled %s; %d dispatches, %d failed steps", sig, st.Dispatches, st.Failures)); err != nil {
			slog.Debug("systemd status failed", "error", err)
		}
	}
	runErr := loop.Run(ctx)

	st := loop.Stats()
	slog.Info("shutting down", "dispatches", st.Dispatches, "steps", st.Steps, "failures", st.Failures)
	if err := sd.Notify(notify.Stopping); err != nil {
		slog.Debug("systemd notify failed", "error", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// openNotifier returns the systemd notifier, or nil when notifications are
// turned off. A nil notifier sends nothing.
func openNotifier(cfg *config.Config, o *options) *notify.Notifier {
	if o.noSystemd || !cfg.Notify.Systemd {
		slog.Debug("systemd notifications disabled")
		return nil
	}
	n, err := notify.New(cfg.Notify.Debug)
	if err != nil {
		slog.Error("systemd notify unavailable", "error", err)
		return nil
	}
	return n
}

// bundleSummary describes the occupied bundles, e.g. "usr1: print, touch; hup: log".
func bundleSummary(b dispatch.Bundles) string {
	var parts []string
	for _, sig := range signals.Handled {
		bundle := b[sig]
		if len(bundle) == 0 {
			continue
		}
		names := make([]string, len(bundle))
		for i, inst := range bundle {
			names[i] = inst.Name()
		}
		parts = append(parts, sig.Name()+": "+strings.Join(names, ", "))
	}
	return strings.Join(parts, "; ")
}

// ///////////////////////////////////////////////
// Shutdown
// ///////////////////////////////////////////////

// watchTermination cancels the daemon on the first value from term and calls
// exit on the second, without waiting for the running bundle. The returned
// func stops the watcher.
func watchTermination(term <-chan os.Signal, cancel context.CancelFunc, exit func(int)) (stop func()) {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		select {
		case sig := <-term:
			slog.Warn("shutdown requested; finishing current bundle", "signal", sig)
			cancel()
		case <-done:
			return
		}
		select {
		case sig := <-term:
			logger.Fail(slog.Default(), "second termination signal; exiting now", "signal", sig)
			exit(exitFailure)
		case <-done:
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}
