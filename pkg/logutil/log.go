package logutil

import (
	"strings"

	"github.com/pingcap/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hanfei1991/rcmanager/pkg/errors"
)

const defaultLogLevel = "info"

// Config is the log config of both binaries.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level"`
	// File is the log file, logs go to stdout if it is empty.
	File string `toml:"file" json:"file"`
	// Format is text or json.
	Format string `toml:"format" json:"format"`
}

// NewDefaultConfig returns an info level stdout config.
func NewDefaultConfig() Config {
	return Config{Level: defaultLogLevel, Format: "text"}
}

// Adjust validates c and fills the defaults.
func (c *Config) Adjust() error {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	if c.Level == "" {
		c.Level = defaultLogLevel
	}
	var lv zapcore.Level
	if err := lv.UnmarshalText([]byte(c.Level)); err != nil {
		return errors.ErrConfigInvalid.Wrap(err).GenWithStackByArgs("log.level " + c.Level)
	}
	switch c.Format {
	case "":
		c.Format = "text"
	case "text", "json":
	default:
		return errors.ErrConfigInvalid.GenWithStackByArgs("log.format " + c.Format)
	}
	return nil
}

type loggerOption struct {
	output zapcore.WriteSyncer
}

// LoggerOpt is an option of InitLogger.
type LoggerOpt func(*loggerOption)

// WithOutputWriteSyncer sends logs to output instead of the configured file.
func WithOutputWriteSyncer(output zapcore.WriteSyncer) LoggerOpt {
	return func(o *loggerOption) {
		o.output = output
	}
}

// InitLogger initializes the global logger of pingcap/log.
func InitLogger(conf *Config, opts ...LoggerOpt) error {
	var op loggerOption
	for _, opt := range opts {
		opt(&op)
	}

	logCfg := &log.Config{
		Level:  conf.Level,
		Format: conf.Format,
		File:   log.FileLogConfig{Filename: conf.File},
	}

	var (
		lg    *zap.Logger
		props *log.ZapProperties
		err   error
	)
	if op.output == nil {
		lg, props, err = log.InitLogger(logCfg)
	} else {
		lg, props, err = log.InitLoggerWithWriteSyncer(logCfg, op.output, op.output)
	}
	if err != nil {
		return errors.Trace(err)
	}
	log.ReplaceGlobals(lg, props)
	return nil
}
