package master

import (
	"context"

	"github.com/pingcap/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/pkg/cmd/util"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/logutil"
	"github.com/hanfei1991/rcmanager/servermaster"
)

// options defines flags for the `master` command.
type options struct {
	masterConfig         *servermaster.Config
	masterConfigFilePath string
}

func newOptions() *options {
	return &options{
		masterConfig: servermaster.GetDefaultMasterConfig(),
	}
}

func (o *options) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.masterConfig.Addr, "addr", o.masterConfig.Addr, "Set the listening address of the HTTP API")
	cmd.Flags().StringVar(&o.masterConfig.Gateway.URL, "gateway-url", o.masterConfig.Gateway.URL, "NATS url the executor gateway subscribes to, empty disables the gateway")

	cmd.Flags().StringVar(&o.masterConfigFilePath, "config", "", "Path of the configuration file")
	cmd.Flags().StringVar(&o.masterConfig.LogConf.File, "log-file", o.masterConfig.LogConf.File, "log file path")
	cmd.Flags().StringVar(&o.masterConfig.LogConf.Level, "log-level", o.masterConfig.LogConf.Level, "log level (etc: debug|info|warn|error)")
}

// complete merges the config file and the flags set on the command line.
func (o *options) complete(cmd *cobra.Command) error {
	cfg := servermaster.GetDefaultMasterConfig()
	if len(o.masterConfigFilePath) > 0 {
		if err := cfg.ConfigFromFile(o.masterConfigFilePath); err != nil {
			return err
		}
	}

	cmd.Flags().Visit(func(flag *pflag.Flag) {
		switch flag.Name {
		case "addr":
			cfg.Addr = o.masterConfig.Addr
		case "gateway-url":
			cfg.Gateway.URL = o.masterConfig.Gateway.URL
		case "config":
			// do nothing
		case "log-file":
			cfg.LogConf.File = o.masterConfig.LogConf.File
		case "log-level":
			cfg.LogConf.Level = o.masterConfig.LogConf.Level
		default:
			log.Panic("unknown flag, please report a bug", zap.String("flagName", flag.Name))
		}
	})

	if err := cfg.Adjust(); err != nil {
		return errors.Trace(err)
	}
	o.masterConfig = cfg
	return nil
}

func (o *options) run() error {
	if err := logutil.InitLogger(&o.masterConfig.LogConf); err != nil {
		return errors.Trace(err)
	}
	util.SetGinMode()
	log.L().Info("resource cluster master config", zap.Stringer("config", o.masterConfig))

	ctx, cancel := util.InitCmd()
	defer cancel()

	server := servermaster.NewServer(o.masterConfig)
	err := server.Run(ctx)
	if err != nil && errors.Cause(err) != context.Canceled {
		log.L().Error("run resource cluster master with error", zap.Error(err))
		return errors.Trace(err)
	}
	log.L().Info("resource cluster master exits successfully")
	return nil
}

// NewCmdMaster creates the `master` command.
func NewCmdMaster() *cobra.Command {
	o := newOptions()

	command := &cobra.Command{
		Use:   "master",
		Short: "Start a resource cluster master",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.complete(cmd); err != nil {
				return err
			}
			return o.run()
		},
	}
	o.addFlags(command)
	return command
}
