// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import (
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	PIDFile    = "flagman.pid"
	ConfigFile = "flagman.toml"
	LogFile    = "flagman.log"
)

// Binary and directory names.
const (
	BinaryName = "flagman"
	DataDirRel = ".flagman" // relative to $HOME
)

// ConfigCandidates lists config file names tried in order when no explicit
// path is given. The TOML file wins when several exist.
var ConfigCandidates = []string{ConfigFile, "flagman.yaml", "flagman.yml"}

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// Default returns the platform default data directory, typically ~/.flagman.
// Falls back to ./.flagman if the home directory cannot be determined.
func Default() DataDir {
	home, err := os.UserHomeDir()
	if err != nil {
		return DataDir{Root: filepath.Join(".", DataDirRel)}
	}
	return DataDir{Root: filepath.Join(home, DataDirRel)}
}

// PID returns the full path to the PID file.
func (d DataDir) PID() string { return filepath.Join(d.Root, PIDFile) }

// Config returns the full path to the TOML config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// FindConfig returns the first existing entry of [ConfigCandidates] in the
// data directory. ok is false when none exists.
func (d DataDir) FindConfig() (path string, ok bool) {
	for _, name := range ConfigCandidates {
		p := filepath.Join(d.Root, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}
