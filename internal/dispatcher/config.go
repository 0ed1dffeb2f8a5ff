package dispatcher

import "github.com/dshills/composite/internal/logger"

// Config holds dispatcher configuration options.
type Config struct {
	// EnableMetrics enables per-method timing and statistics collection.
	EnableMetrics bool

	// Identity services Object methods. Nil means the dispatcher itself.
	Identity Identity

	// Logger receives registration and resolution diagnostics.
	// Nil means a no-op logger.
	Logger *logger.Logger
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EnableMetrics: false,
	}
}

// WithMetrics returns a copy of the config with metrics enabled.
func (c Config) WithMetrics() Config {
	c.EnableMetrics = true
	return c
}

// WithIdentity returns a copy of the config with a custom identity.
func (c Config) WithIdentity(id Identity) Config {
	c.Identity = id
	return c
}

// WithLogger returns a copy of the config with the logger set.
func (c Config) WithLogger(l *logger.Logger) Config {
	c.Logger = l
	return c
}
