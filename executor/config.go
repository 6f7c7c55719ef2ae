package executor

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/logutil"
	"github.com/hanfei1991/rcmanager/pkg/provider"
)

const (
	defaultMasterSubjectPrefix      = "rcm.executor"
	defaultRequestTimeout           = 5 * time.Second
	defaultHeartbeatInterval        = 10 * time.Second
	defaultTolerableMissedHeartbeat = 3
	defaultRegisterTimeout          = 5 * time.Minute
	defaultDataDir                  = "/"
)

// MasterConfig locates the gateway of the resource cluster master.
type MasterConfig struct {
	URL           string `toml:"url" json:"url"`
	SubjectPrefix string `toml:"subject-prefix" json:"subject-prefix"`
	// RequestTimeout bounds every request to the master.
	RequestTimeout time.Duration `toml:"request-timeout" json:"request-timeout"`
}

// HeartbeatConfig must agree with the heartbeat config of the master.
type HeartbeatConfig struct {
	Interval time.Duration `toml:"interval" json:"interval"`
	// TolerableMissed is how many heartbeats in a row may fail before the
	// executor registers again.
	TolerableMissed int `toml:"tolerable-missed" json:"tolerable-missed"`
}

// MachineConfig overrides the detected machine definition, zero values are
// detected.
type MachineConfig struct {
	CPUCores    float64 `toml:"cpu-cores" json:"cpu-cores"`
	MemoryMB    float64 `toml:"memory-mb" json:"memory-mb"`
	NetworkMbps float64 `toml:"network-mbps" json:"network-mbps"`
	DiskMB      float64 `toml:"disk-mb" json:"disk-mb"`
	GPUs        int     `toml:"gpus" json:"gpus"`
}

// Config is the configuration of a task executor.
type Config struct {
	LogConf logutil.Config `toml:"log" json:"log"`

	TaskExecutorID string `toml:"task-executor-id" json:"task-executor-id"`
	ClusterID      string `toml:"cluster-id" json:"cluster-id"`
	// Address is where workers hosted by this executor can be reached.
	Address  string `toml:"address" json:"address"`
	Hostname string `toml:"hostname" json:"hostname"`
	// StatusAddr serves metrics and the executor status, empty disables it.
	StatusAddr string `toml:"status-addr" json:"status-addr"`
	// DataDir is the directory whose filesystem size is the disk of the executor.
	DataDir string `toml:"data-dir" json:"data-dir"`

	WorkerPorts model.WorkerPorts `toml:"worker-ports" json:"worker-ports"`
	Machine     MachineConfig     `toml:"machine" json:"machine"`
	Master      MasterConfig      `toml:"master" json:"master"`
	Heartbeat   HeartbeatConfig   `toml:"heartbeat" json:"heartbeat"`

	// RegisterTimeout is how long registration is retried before the
	// executor exits, 0 retries forever.
	RegisterTimeout time.Duration `toml:"register-timeout" json:"register-timeout"`
}

// GetDefaultExecutorConfig returns a default executor config.
func GetDefaultExecutorConfig() *Config {
	return &Config{
		LogConf:     logutil.NewDefaultConfig(),
		DataDir:     defaultDataDir,
		WorkerPorts: model.DefaultWorkerPorts(),
		Master: MasterConfig{
			URL:            nats.DefaultURL,
			SubjectPrefix:  defaultMasterSubjectPrefix,
			RequestTimeout: defaultRequestTimeout,
		},
		Heartbeat: HeartbeatConfig{
			Interval:        defaultHeartbeatInterval,
			TolerableMissed: defaultTolerableMissedHeartbeat,
		},
		RegisterTimeout: defaultRegisterTimeout,
	}
}

func (c *Config) String() string {
	cfg, err := json.Marshal(c)
	if err != nil {
		log.L().Error("marshal to json", zap.Reflect("executor config", c), zap.Error(err))
	}
	return string(cfg)
}

// Toml returns TOML format representation of config.
func (c *Config) Toml() (string, error) {
	var b bytes.Buffer
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return "", errors.ErrEncodeFailed.Wrap(err).GenWithStackByArgs("executor config")
	}
	return b.String(), nil
}

// Adjust fills the identity of the executor from the environment set by
// the docker provider, then from the host.
func (c *Config) Adjust() error {
	if err := c.LogConf.Adjust(); err != nil {
		return err
	}
	if c.TaskExecutorID == "" {
		c.TaskExecutorID = os.Getenv(provider.EnvTaskExecutorID)
	}
	if c.TaskExecutorID == "" {
		c.TaskExecutorID = uuid.New().String()
	}
	if c.ClusterID == "" {
		c.ClusterID = os.Getenv(provider.EnvClusterID)
	}
	if c.ClusterID == "" {
		c.ClusterID = string(model.DefaultClusterID)
	}
	if c.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return errors.ErrConfigInvalid.Wrap(err).GenWithStackByArgs("hostname")
		}
		c.Hostname = hostname
	}
	if c.Address == "" {
		c.Address = c.Hostname
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.WorkerPorts == (model.WorkerPorts{}) {
		c.WorkerPorts = model.DefaultWorkerPorts()
	}
	if c.Master.URL == "" {
		c.Master.URL = nats.DefaultURL
	}
	if c.Master.SubjectPrefix == "" {
		c.Master.SubjectPrefix = defaultMasterSubjectPrefix
	}
	if c.Master.RequestTimeout <= 0 {
		c.Master.RequestTimeout = defaultRequestTimeout
	}
	if c.Heartbeat.Interval <= 0 {
		c.Heartbeat.Interval = defaultHeartbeatInterval
	}
	if c.Heartbeat.TolerableMissed <= 0 {
		c.Heartbeat.TolerableMissed = defaultTolerableMissedHeartbeat
	}
	if c.RegisterTimeout < 0 {
		return errors.ErrConfigInvalid.GenWithStackByArgs("register-timeout is negative")
	}
	m := c.Machine
	if m.CPUCores < 0 || m.MemoryMB < 0 || m.NetworkMbps < 0 || m.DiskMB < 0 || m.GPUs < 0 {
		return errors.ErrConfigInvalid.GenWithStackByArgs("machine has a negative dimension")
	}
	return nil
}

// ConfigFromFile loads config from file and merges items into Config.
func (c *Config) ConfigFromFile(path string) error {
	metaData, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.ErrConfigDecodeFile.Wrap(err).GenWithStackByArgs()
	}
	undecoded := metaData.Undecoded()
	if len(undecoded) > 0 {
		items := make([]string, 0, len(undecoded))
		for _, item := range undecoded {
			items = append(items, item.String())
		}
		return errors.ErrConfigUnknownItem.GenWithStackByArgs(strings.Join(items, ","))
	}
	return nil
}
