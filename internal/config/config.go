// Package config provides configuration loading and defaults for the flagman
// daemon.
//
// Configuration is layered: built-in defaults, then a TOML or YAML file, then
// FLAGMAN_* environment variables, then command-line flags applied by the
// caller. The file maps each handled signal to an ordered list of action
// commands.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"tools.zach/dev/flagman/internal/atomicfile"
	"tools.zach/dev/flagman/internal/dispatch"
	"tools.zach/dev/flagman/internal/logger"
	"tools.zach/dev/flagman/internal/migrate"
	"tools.zach/dev/flagman/internal/signals"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version" yaml:"version"`
	// Log holds logging settings.
	Log LogConfig `toml:"log" yaml:"log"`
	// Notify holds service manager notification settings.
	Notify NotifyConfig `toml:"notify" yaml:"notify"`
	// Signals maps a signal short name (usr1, usr2, hup) to its ordered
	// action commands. Each command is the action name followed by its
	// arguments.
	Signals map[string][][]string `toml:"signals" yaml:"signals"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fail).
	Level string `toml:"level" yaml:"level" env:"LEVEL"`
	// File is the log file path. Empty means stderr.
	File string `toml:"file,omitempty" yaml:"file,omitempty" env:"FILE"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb" yaml:"max_size_mb" env:"MAX_SIZE_MB"`
}

// NotifyConfig holds systemd notification settings.
type NotifyConfig struct {
	// Systemd enables READY/STATUS/STOPPING notifications.
	Systemd bool `toml:"systemd" yaml:"systemd" env:"SYSTEMD"`
	// Debug surfaces notification socket errors instead of ignoring them.
	Debug bool `toml:"debug" yaml:"debug" env:"DEBUG"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with defaults. No actions are
// configured.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Log: LogConfig{
			Level:     "warn",
			MaxSizeMB: 10,
		},
		Notify: NotifyConfig{
			Systemd: true,
		},
		Signals: map[string][][]string{},
	}
}

// ///////////////////////////////////////////////
// Example Configuration
// ///////////////////////////////////////////////

// ExampleConfig returns a Config suitable for generating
// flagman.default.toml: the defaults plus a few illustrative actions.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Signals = map[string][][]string{
		"usr1": {
			{"print", "usr1 received"},
			{"touch", "/tmp/flagman.usr1"},
		},
		"hup": {
			{"log", "reload requested", "warn"},
		},
	}
	return cfg
}

// ///////////////////////////////////////////////
// Formats
// ///////////////////////////////////////////////

// Format is a config file encoding.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "toml"
}

// FormatOf picks the encoding from path's extension. Anything that is not
// .yaml or .yml is treated as TOML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// decodeDocument parses data into a generic document for migration.
func decodeDocument(data []byte, f Format) (migrate.Document, error) {
	doc := migrate.Document{}
	var err error
	if f == FormatYAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = toml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// encodeDocument renders a migrated document back into format f.
func encodeDocument(doc migrate.Document, f Format) ([]byte, error) {
	if f == FormatYAML {
		return yaml.Marshal(map[string]any(doc))
	}
	return toml.Marshal(map[string]any(doc))
}

// Decode parses data in format f on top of [DefaultConfig]. Unknown keys are
// errors.
func Decode(data []byte, f Format) (*Config, error) {
	cfg := DefaultConfig()
	if f == FormatYAML {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	} else {
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("parse toml: unknown keys: %s", strings.Join(keys, ", "))
		}
	}
	if cfg.Signals == nil {
		cfg.Signals = map[string][][]string{}
	}
	return cfg, nil
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads, migrates, and validates the configuration file at path. The
// error wraps [fs.ErrNotExist] when the file is missing so callers can fall
// back to [DefaultConfig].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	format := FormatOf(path)

	doc, err := decodeDocument(data, format)
	if err != nil {
		return nil, fmt.Errorf("config %s: parse %s: %w", path, format, err)
	}
	version := doc.Version()
	if err := migrate.Config.Check(version); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	migrated := migrate.Config.Outdated(version)
	if migrated {
		if backupErr := atomicfile.Write(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write config backup", "error", backupErr)
		}
		if _, err := migrate.Config.Upgrade(doc); err != nil {
			return nil, fmt.Errorf("migrate config %s: %w", path, err)
		}
		if data, err = encodeDocument(doc, format); err != nil {
			return nil, fmt.Errorf("re-encode migrated config %s: %w", path, err)
		}
	}

	cfg, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}

	if migrated {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}

	return cfg, nil
}

// Save writes the config to disk using atomic file write. The encoding
// follows the file extension.
func (c *Config) Save(path string) error {
	return atomicfile.WriteFunc(path, 0o644, func(w io.Writer) error {
		if FormatOf(path) == FormatYAML {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(c); err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			return enc.Close()
		}
		if err := toml.NewEncoder(w).Encode(c); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		return nil
	})
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if !logger.ValidLevel(c.Log.Level) {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, error, or fail", c.Log.Level)
	}

	if c.Log.MaxSizeMB < 0 {
		return fmt.Errorf("log.max_size_mb must be >= 0, got %d", c.Log.MaxSizeMB)
	}

	for _, key := range c.signalKeys() {
		sig, err := signals.Parse(key)
		if err != nil {
			return fmt.Errorf("invalid signals.%s: %w", key, err)
		}
		for i, command := range c.Signals[key] {
			if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
				return fmt.Errorf("signals.%s[%d]: empty action command", sig.Name(), i)
			}
		}
	}

	return nil
}

// signalKeys returns the configured signal keys in sorted order.
func (c *Config) signalKeys() []string {
	keys := make([]string, 0, len(c.Signals))
	for k := range c.Signals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ///////////////////////////////////////////////
// Action Commands
// ///////////////////////////////////////////////

// AddCommand appends an action command for sig after any commands already
// configured for it.
func (c *Config) AddCommand(sig signals.Signal, command []string) {
	if c.Signals == nil {
		c.Signals = map[string][][]string{}
	}
	c.Signals[sig.Name()] = append(c.Signals[sig.Name()], command)
}

// Descriptors converts the configured commands into bundle descriptors keyed
// by signal. Keys may use any spelling accepted by [signals.Parse]; commands
// for the same signal under different spellings are concatenated in sorted
// key order. The config must already be valid.
func (c *Config) Descriptors() (map[signals.Signal][]dispatch.Descriptor, error) {
	out := make(map[signals.Signal][]dispatch.Descriptor, len(signals.Handled))
	for _, key := range c.signalKeys() {
		sig, err := signals.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("signals.%s: %w", key, err)
		}
		for i, command := range c.Signals[key] {
			d, err := dispatch.ParseCommand(command)
			if err != nil {
				return nil, fmt.Errorf("signals.%s[%d]: %w", key, i, err)
			}
			out[sig] = append(out[sig], d)
		}
	}
	return out, nil
}
