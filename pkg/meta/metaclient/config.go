package metaclient

import (
	"strings"
	"time"
)

const (
	// DefaultEtcdEndpoints is used when no endpoint is configured.
	DefaultEtcdEndpoints = "127.0.0.1:2379"
	// DefaultDialTimeout bounds the connection establishment to a store.
	DefaultDialTimeout = 5 * time.Second
)

// StoreConfigParams is the connection config of a metastore backend.
type StoreConfigParams struct {
	// StoreID is the unique readable identifier for a store
	StoreID   string   `toml:"store-id" json:"store-id"`
	Endpoints []string `toml:"endpoints" json:"endpoints"`
	User      string   `toml:"user" json:"user"`
	Password  string   `toml:"password" json:"password"`
	// Schema is the database name for sql backends.
	Schema      string        `toml:"schema" json:"schema"`
	DialTimeout time.Duration `toml:"dial-timeout" json:"dial-timeout"`
}

// SetEndpoints sets endpoints from a comma separated list.
func (s *StoreConfigParams) SetEndpoints(endpoints string) {
	if endpoints != "" {
		s.Endpoints = strings.Split(endpoints, ",")
	}
}

// Adjust fills the defaults.
func (s *StoreConfigParams) Adjust() {
	if len(s.Endpoints) == 0 {
		s.Endpoints = []string{DefaultEtcdEndpoints}
	}
	if s.DialTimeout <= 0 {
		s.DialTimeout = DefaultDialTimeout
	}
}
