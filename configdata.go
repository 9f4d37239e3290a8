// Package flagman provides embedded assets for the flagman daemon.
//
// The root package exists solely to embed [flagman.default.toml] via
// [DefaultConfigTOML]. The init-config command writes it out as a starting
// point for new installs.
package flagman

import _ "embed"

// DefaultConfigTOML holds the raw bytes of flagman.default.toml, embedded at
// build time.
//
//go:embed flagman.default.toml
var DefaultConfigTOML []byte
