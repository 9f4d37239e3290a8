package migrate

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrTooNew is returned by [Registry.Check] for a document written by a newer
// schema than this binary understands.
var ErrTooNew = errors.New("schema version is newer than supported")

// ErrInvalidVersion is returned by [Registry.Check] for versions below 1.
var ErrInvalidVersion = errors.New("invalid schema version")

// Step upgrades a document to Version from the version before it.
type Step struct {
	// Version is the schema version this step produces.
	Version int
	// Description is a short label for log output.
	Description string
	// Apply edits the document in place.
	Apply func(Document) error
}

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

// Registry holds the current schema version and the steps that reach it.
type Registry struct {
	// CurrentVersion is the schema version this binary writes.
	CurrentVersion int
	// Steps is kept sorted by version. Exported so tests can swap the list.
	Steps []Step
}

// Register adds s in version order. It panics on a duplicate version or one
// beyond [Registry.CurrentVersion], both of which are programming errors.
func (r *Registry) Register(s Step) {
	if s.Version > r.CurrentVersion {
		panic(fmt.Sprintf("migrate: step %d (%q) is past current version %d", s.Version, s.Description, r.CurrentVersion))
	}
	i := sort.Search(len(r.Steps), func(i int) bool { return r.Steps[i].Version >= s.Version })
	if i < len(r.Steps) && r.Steps[i].Version == s.Version {
		panic(fmt.Sprintf("migrate: duplicate step version %d (%q)", s.Version, s.Description))
	}
	r.Steps = append(r.Steps, Step{})
	copy(r.Steps[i+1:], r.Steps[i:])
	r.Steps[i] = s
}

// Check rejects versions this registry cannot load.
func (r *Registry) Check(version int) error {
	switch {
	case version < 1:
		return fmt.Errorf("%w: %d", ErrInvalidVersion, version)
	case version > r.CurrentVersion:
		return fmt.Errorf("%w: got %d, support up to %d", ErrTooNew, version, r.CurrentVersion)
	}
	return nil
}

// Outdated reports whether a document at version needs upgrading.
func (r *Registry) Outdated(version int) bool {
	return version < r.CurrentVersion
}

// Upgrade applies every step newer than doc's version, then stamps the
// document with [Registry.CurrentVersion]. On error the document may be
// partially edited and the returned version is the last one fully reached.
func (r *Registry) Upgrade(doc Document) (int, error) {
	version := doc.Version()
	if err := r.Check(version); err != nil {
		return version, err
	}
	for _, s := range r.Steps {
		if s.Version <= version {
			continue
		}
		slog.Info("applying config migration", "version", s.Version, "description", s.Description)
		if err := s.Apply(doc); err != nil {
			return version, fmt.Errorf("migration to v%d (%s): %w", s.Version, s.Description, err)
		}
		version = s.Version
	}
	doc[VersionKey] = r.CurrentVersion
	return r.CurrentVersion, nil
}

// Config is the registry for flagman config files.
var Config = &Registry{CurrentVersion: 1}
