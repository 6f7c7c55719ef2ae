package resourcecluster

import (
	"time"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

const (
	defaultHeartbeatInterval        = 10 * time.Second
	defaultTolerableMissedHeartbeat = 3
	defaultCheckInterval            = time.Second
)

// HeartbeatConfig is the heartbeat contract between executors and the master.
type HeartbeatConfig struct {
	Interval time.Duration `toml:"interval" json:"interval"`
	// TolerableMissed is how many intervals in a row an executor may miss
	// before it is unregistered.
	TolerableMissed int           `toml:"tolerable-missed" json:"tolerable-missed"`
	CheckInterval   time.Duration `toml:"check-interval" json:"check-interval"`
}

// Timeout is the silence after which an executor is unregistered.
func (c HeartbeatConfig) Timeout() time.Duration {
	return c.Interval * time.Duration(c.TolerableMissed)
}

// Config configures every ResourceCluster.
type Config struct {
	Heartbeat HeartbeatConfig `toml:"heartbeat" json:"heartbeat"`
	// DiscreteMatchPolicy decides how ports and GPUs are matched, superset or exact.
	DiscreteMatchPolicy string `toml:"discrete-match-policy" json:"discrete-match-policy"`
}

// NewDefaultConfig returns the default config.
func NewDefaultConfig() Config {
	return Config{
		Heartbeat: HeartbeatConfig{
			Interval:        defaultHeartbeatInterval,
			TolerableMissed: defaultTolerableMissedHeartbeat,
			CheckInterval:   defaultCheckInterval,
		},
		DiscreteMatchPolicy: string(model.MatchSuperset),
	}
}

// Adjust validates c and fills the defaults.
func (c *Config) Adjust() error {
	if c.Heartbeat.Interval <= 0 {
		c.Heartbeat.Interval = defaultHeartbeatInterval
	}
	if c.Heartbeat.TolerableMissed <= 0 {
		c.Heartbeat.TolerableMissed = defaultTolerableMissedHeartbeat
	}
	if c.Heartbeat.CheckInterval <= 0 {
		c.Heartbeat.CheckInterval = defaultCheckInterval
	}
	policy, err := model.ParseMatchPolicy(c.DiscreteMatchPolicy)
	if err != nil {
		return errors.ErrConfigInvalid.Wrap(err).GenWithStackByArgs("discrete-match-policy")
	}
	c.DiscreteMatchPolicy = string(policy)
	return nil
}

// MatchPolicy returns the discrete match policy, superset if it is invalid.
func (c *Config) MatchPolicy() model.MatchPolicy {
	policy, err := model.ParseMatchPolicy(c.DiscreteMatchPolicy)
	if err != nil {
		return model.MatchSuperset
	}
	return policy
}
