// Package builtin holds the actions shipped with flagman and the static
// registry that names them.
package builtin

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"tools.zach/dev/flagman/internal/action"
)

// Options carries the collaborators built-in actions write to. Zero values
// select the process defaults.
type Options struct {
	// Stdout receives print output and the stdout of exec children.
	Stdout io.Writer
	// Stderr receives the stderr of exec children.
	Stderr io.Writer
	// Logger is used by the log action. Nil means slog.Default at step time.
	Logger *slog.Logger
	// HTTPClient supplies the webhook transport and retry timing. Each
	// webhook action still applies its own retry count. Nil uses defaults.
	HTTPClient *retryablehttp.Client
	// Now is the clock used for timestamps.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Entries returns every built-in action entry.
func Entries(opts Options) []action.Entry {
	opts = opts.withDefaults()
	return []action.Entry{
		{
			Name:        "print",
			Usage:       "MESSAGE",
			Description: "Print MESSAGE on every signal; prints init and cleanup around it.",
			Factory:     printFactory(opts),
		},
		{
			Name:        "delayed_print",
			Usage:       "MESSAGE SECONDS",
			Description: "Print MESSAGE, wait SECONDS, then print a finished message.",
			Factory:     delayedPrintFactory(opts),
		},
		{
			Name:        "print_once",
			Usage:       "MESSAGE",
			Description: "Print MESSAGE on the first signal only, then retire.",
			Factory:     printOnceFactory(opts),
		},
		{
			Name:        "log",
			Usage:       "MESSAGE [LEVEL]",
			Description: "Write MESSAGE to the flagman log at LEVEL (default info).",
			Factory:     logFactory(opts),
		},
		{
			Name:        "exec",
			Usage:       "COMMAND [ARG...]",
			Description: "Run COMMAND to completion; a non-zero exit is a failure.",
			Factory:     execFactory(opts),
		},
		{
			Name:        "touch",
			Usage:       "PATH",
			Description: "Atomically write the current time to PATH.",
			Factory:     touchFactory(opts),
		},
		{
			Name:        "sweep",
			Usage:       "DIR GLOB MAX_AGE",
			Description: "Delete files under DIR matching GLOB older than MAX_AGE (e.g. 24h).",
			Factory:     sweepFactory(opts),
		},
		{
			Name:        "webhook",
			Usage:       "URL [RETRIES]",
			Description: "POST a JSON event to URL, retrying transient failures.",
			Factory:     webhookFactory(opts),
		},
		{
			Name:        "await",
			Usage:       "PATH TIMEOUT",
			Description: "Block until PATH is created or written, failing after TIMEOUT.",
			Factory:     awaitFactory(opts),
		},
	}
}

// Registry returns the static registry of built-in actions.
func Registry(opts Options) *action.Registry {
	return action.NewRegistry(Entries(opts)...)
}
