package gosession

import (
	"errors"
	"time"
)

// Config controls session persistence behavior.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	// KeyPrefix is the namespace prepended to every session id to form the
	// document key, e.g. "dev::app::session::". Fixed at build time.
	KeyPrefix string

	// MaxInactive is the inactivity window after which the store expires a
	// session. Applied as the document TTL on every write and refreshed by
	// primary reads.
	MaxInactive time.Duration
}

func defaultConfig() Config {
	return Config{
		KeyPrefix:   "session::",
		MaxInactive: 30 * time.Minute,
	}
}

// Validate checks the configuration for values the store cannot operate
// with.
func (c Config) Validate() error {
	if c.KeyPrefix == "" {
		return errors.New("gosession: key prefix must not be empty")
	}
	if c.MaxInactive < time.Second {
		return errors.New("gosession: max inactive interval must be at least one second")
	}
	return nil
}
