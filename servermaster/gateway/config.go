package gateway

import "time"

const (
	defaultSubjectPrefix  = "rcm.executor"
	defaultRequestTimeout = 5 * time.Second
	// QueueGroup load balances executor messages among masters subscribed
	// to the same server.
	QueueGroup = "rc-master"
)

// Config configures the executor gateway. An empty URL disables it.
type Config struct {
	URL           string `toml:"url" json:"url"`
	SubjectPrefix string `toml:"subject-prefix" json:"subject-prefix"`
	// RequestTimeout bounds how long a message waits for its cluster.
	RequestTimeout time.Duration `toml:"request-timeout" json:"request-timeout"`
}

// NewDefaultConfig returns a disabled gateway config.
func NewDefaultConfig() Config {
	return Config{
		SubjectPrefix:  defaultSubjectPrefix,
		RequestTimeout: defaultRequestTimeout,
	}
}

// Adjust fills the defaults.
func (c *Config) Adjust() {
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = defaultSubjectPrefix
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
}

// Enabled reports whether the gateway should be started.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// RegisterSubject carries model.TaskExecutorRegistration.
func (c *Config) RegisterSubject() string {
	return c.SubjectPrefix + ".register"
}

// HeartbeatSubject carries model.TaskExecutorHeartbeat.
func (c *Config) HeartbeatSubject() string {
	return c.SubjectPrefix + ".heartbeat"
}

// DisconnectSubject carries model.TaskExecutorDisconnection.
func (c *Config) DisconnectSubject() string {
	return c.SubjectPrefix + ".disconnect"
}
