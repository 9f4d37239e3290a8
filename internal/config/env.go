package config

import (
	"fmt"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable flagman reads.
const EnvPrefix = "FLAGMAN_"

// envOverlay mirrors the settings that may be overridden from the
// environment, e.g. FLAGMAN_LOG_LEVEL or FLAGMAN_NOTIFY_DEBUG.
type envOverlay struct {
	Log    LogConfig    `envPrefix:"LOG_"`
	Notify NotifyConfig `envPrefix:"NOTIFY_"`
}

// ApplyEnv overlays FLAGMAN_* variables onto c. Set variables win over file
// values, including explicit zeros such as FLAGMAN_NOTIFY_DEBUG=false; unset
// or empty variables leave c untouched. A nil environ reads the process
// environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	// The parser only assigns fields whose variable is set, so seeding the
	// overlay with c makes every other field equal to the current value.
	overlay := envOverlay{Log: c.Log, Notify: c.Notify}
	if err := env.ParseWithOptions(&overlay, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if err := mergo.Merge(&c.Log, overlay.Log, mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
		return fmt.Errorf("merge log env: %w", err)
	}
	if err := mergo.Merge(&c.Notify, overlay.Notify, mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
		return fmt.Errorf("merge notify env: %w", err)
	}
	return nil
}
