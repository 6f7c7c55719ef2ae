package hostmanager

import (
	"time"

	"github.com/hanfei1991/rcmanager/pkg/errors"
)

const defaultCallTimeout = 30 * time.Second

// Config configures a Manager.
type Config struct {
	// CallTimeout bounds every storage and provider call.
	CallTimeout time.Duration `toml:"collaborator-call-timeout" json:"collaborator-call-timeout"`
}

// NewDefaultConfig returns the default config.
func NewDefaultConfig() Config {
	return Config{CallTimeout: defaultCallTimeout}
}

// Adjust validates c and fills the defaults.
func (c *Config) Adjust() error {
	if c.CallTimeout < 0 {
		return errors.ErrConfigInvalid.GenWithStackByArgs("manager.collaborator-call-timeout is negative")
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = defaultCallTimeout
	}
	return nil
}
