package sqlutil

import "time"

const (
	defaultConnMaxIdleTime = 30 * time.Second
	defaultConnMaxLifeTime = 12 * time.Hour
	defaultMaxIdleConns    = 3
	defaultMaxOpenConns    = 10
	defaultReadTimeout     = "3s"
	defaultWriteTimeout    = "3s"
	defaultDialTimeout     = "3s"
)

// DBConfig holds the connection pool parameters,
// refer to: https://pkg.go.dev/database/sql#SetConnMaxIdleTime
type DBConfig struct {
	ReadTimeout     string        `toml:"read-timeout" json:"read-timeout"`
	WriteTimeout    string        `toml:"write-timeout" json:"write-timeout"`
	DialTimeout     string        `toml:"dial-timeout" json:"dial-timeout"`
	ConnMaxIdleTime time.Duration `toml:"conn-max-idle-time" json:"conn-max-idle-time"`
	ConnMaxLifeTime time.Duration `toml:"conn-max-life-time" json:"conn-max-life-time"`
	MaxIdleConns    int           `toml:"max-idle-conns" json:"max-idle-conns"`
	MaxOpenConns    int           `toml:"max-open-conns" json:"max-open-conns"`
}

// NewDefaultDBConfig returns the default pool parameters.
func NewDefaultDBConfig() DBConfig {
	return DBConfig{
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		DialTimeout:     defaultDialTimeout,
		ConnMaxIdleTime: defaultConnMaxIdleTime,
		ConnMaxLifeTime: defaultConnMaxLifeTime,
		MaxIdleConns:    defaultMaxIdleConns,
		MaxOpenConns:    defaultMaxOpenConns,
	}
}
