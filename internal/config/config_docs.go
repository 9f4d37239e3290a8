package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated flagman.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "log.level") to their
// [FieldDoc] entries. Section entries (e.g. "signals") annotate the table
// header.
var ConfigDocs = map[string]FieldDoc{
	// Root
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// Log
	"log.level": {
		Comment: "Minimum log level: trace, debug, info, warn, error, fail.\n-v, -vv and -vvv on the command line lower it; -q raises it to fail.\nEnvironment: FLAGMAN_LOG_LEVEL",
		Alternatives: []string{
			`level = "info"`,
			`level = "debug"`,
		},
	},
	"log.file": {
		Comment: "Write logs to a rotating file instead of stderr.\nEnvironment: FLAGMAN_LOG_FILE",
		Alternatives: []string{
			`file = "/var/log/flagman/flagman.log"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Rotate the log file once it reaches this size. Ignored for stderr.\nEnvironment: FLAGMAN_LOG_MAX_SIZE_MB",
	},

	// Notify
	"notify.systemd": {
		Comment: "Send READY/STATUS/STOPPING to systemd when $NOTIFY_SOCKET is set.\nUse with Type=notify units. --no-systemd turns it off.\nEnvironment: FLAGMAN_NOTIFY_SYSTEMD",
	},
	"notify.debug": {
		Comment: "Report notification socket errors instead of ignoring them.\nEnvironment: FLAGMAN_NOTIFY_DEBUG",
	},

	// Signals
	"signals": {
		Comment: "Actions to take per signal: usr1, usr2, hup.\nEach entry is [\"action\", \"arg\", ...]; actions run in the listed order.\nSignals without actions keep their default behavior.\nRun `flagman list` for the available actions.",
	},
	"signals.usr2": {
		Alternatives: []string{
			`usr2 = [["exec", "/usr/local/bin/rotate-keys"], ["webhook", "https://hooks.example.com/flagman"]]`,
		},
	},
}
