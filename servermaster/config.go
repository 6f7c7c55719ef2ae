package servermaster

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/log"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/pkg/clusterstorage"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/logutil"
	"github.com/hanfei1991/rcmanager/pkg/provider"
	"github.com/hanfei1991/rcmanager/servermaster/gateway"
	"github.com/hanfei1991/rcmanager/servermaster/hostmanager"
	"github.com/hanfei1991/rcmanager/servermaster/resourcecluster"
)

const (
	defaultAddr                   = "0.0.0.0:10240"
	defaultOverviewReportSchedule = "@every 1m"
)

// Config is the configuration of the resource cluster master.
type Config struct {
	LogConf logutil.Config `toml:"log" json:"log"`

	// Addr is the listening address of the HTTP API.
	Addr string `toml:"addr" json:"addr"`

	ResourceCluster resourcecluster.Config `toml:"resource-cluster" json:"resource-cluster"`
	Manager         hostmanager.Config     `toml:"manager" json:"manager"`
	Storage         clusterstorage.Config  `toml:"storage" json:"storage"`
	Provider        provider.Config        `toml:"provider" json:"provider"`
	Gateway         gateway.Config         `toml:"gateway" json:"gateway"`

	// OverviewReportSchedule is a cron spec for logging and exporting the
	// overview of every cluster, empty disables the report.
	OverviewReportSchedule string `toml:"overview-report-schedule" json:"overview-report-schedule"`
}

func (c *Config) String() string {
	cfg, err := json.Marshal(c)
	if err != nil {
		log.L().Error("marshal to json", zap.Reflect("master config", c), zap.Error(err))
	}
	return string(cfg)
}

// Toml returns TOML format representation of config.
func (c *Config) Toml() (string, error) {
	var b bytes.Buffer

	err := toml.NewEncoder(&b).Encode(c)
	if err != nil {
		log.L().Error("fail to marshal config to toml", zap.Error(err))
		return "", errors.ErrEncodeFailed.Wrap(err).GenWithStackByArgs("master config")
	}

	return b.String(), nil
}

// Adjust validates the master configuration and fills the defaults.
func (c *Config) Adjust() error {
	if err := c.LogConf.Adjust(); err != nil {
		return err
	}
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
	if err := c.ResourceCluster.Adjust(); err != nil {
		return err
	}
	if err := c.Manager.Adjust(); err != nil {
		return err
	}
	if err := c.Storage.Adjust(); err != nil {
		return err
	}
	if err := c.Provider.Adjust(); err != nil {
		return err
	}
	c.Gateway.Adjust()
	if c.OverviewReportSchedule != "" {
		if _, err := cron.ParseStandard(c.OverviewReportSchedule); err != nil {
			return errors.ErrConfigInvalid.Wrap(err).GenWithStackByArgs(
				"overview-report-schedule " + c.OverviewReportSchedule)
		}
	}
	return nil
}

// ConfigFromFile loads config from file and merges items into Config.
func (c *Config) ConfigFromFile(path string) error {
	metaData, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.ErrConfigDecodeFile.Wrap(err).GenWithStackByArgs()
	}
	return checkUndecodedItems(metaData)
}

func (c *Config) configFromString(data string) error {
	metaData, err := toml.Decode(data, c)
	if err != nil {
		return errors.ErrConfigDecodeFile.Wrap(err).GenWithStackByArgs()
	}
	return checkUndecodedItems(metaData)
}

// GetDefaultMasterConfig returns a default master config
func GetDefaultMasterConfig() *Config {
	return &Config{
		LogConf:                logutil.NewDefaultConfig(),
		Addr:                   defaultAddr,
		ResourceCluster:        resourcecluster.NewDefaultConfig(),
		Manager:                hostmanager.NewDefaultConfig(),
		Storage:                clusterstorage.NewDefaultConfig(),
		Provider:               provider.NewDefaultConfig(),
		Gateway:                gateway.NewDefaultConfig(),
		OverviewReportSchedule: defaultOverviewReportSchedule,
	}
}

func checkUndecodedItems(metaData toml.MetaData) error {
	undecoded := metaData.Undecoded()
	if len(undecoded) > 0 {
		var undecodedItems []string
		for _, item := range undecoded {
			undecodedItems = append(undecodedItems, item.String())
		}
		return errors.ErrConfigUnknownItem.GenWithStackByArgs(strings.Join(undecodedItems, ","))
	}
	return nil
}
