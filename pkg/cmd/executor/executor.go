package executor

import (
	"context"

	"github.com/pingcap/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/executor"
	"github.com/hanfei1991/rcmanager/pkg/cmd/util"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/logutil"
)

// options defines flags for the `executor` command.
type options struct {
	executorConfig         *executor.Config
	executorConfigFilePath string
}

func newOptions() *options {
	return &options{
		executorConfig: executor.GetDefaultExecutorConfig(),
	}
}

func (o *options) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.executorConfig.TaskExecutorID, "task-executor-id", o.executorConfig.TaskExecutorID, "id of the task executor, generated if empty")
	cmd.Flags().StringVar(&o.executorConfig.ClusterID, "cluster-id", o.executorConfig.ClusterID, "resource cluster to join")
	cmd.Flags().StringVar(&o.executorConfig.Address, "address", o.executorConfig.Address, "address workers on this executor are reached at")
	cmd.Flags().StringVar(&o.executorConfig.StatusAddr, "status-addr", o.executorConfig.StatusAddr, "listening address of metrics and status, empty disables it")
	cmd.Flags().StringVar(&o.executorConfig.Master.URL, "master-url", o.executorConfig.Master.URL, "NATS url the master gateway listens on")

	cmd.Flags().StringVar(&o.executorConfigFilePath, "config", "", "Path of the configuration file")
	cmd.Flags().StringVar(&o.executorConfig.LogConf.File, "log-file", o.executorConfig.LogConf.File, "log file path")
	cmd.Flags().StringVar(&o.executorConfig.LogConf.Level, "log-level", o.executorConfig.LogConf.Level, "log level (etc: debug|info|warn|error)")
}

// complete merges the config file and the flags set on the command line.
func (o *options) complete(cmd *cobra.Command) error {
	cfg := executor.GetDefaultExecutorConfig()
	if len(o.executorConfigFilePath) > 0 {
		if err := cfg.ConfigFromFile(o.executorConfigFilePath); err != nil {
			return err
		}
	}

	cmd.Flags().Visit(func(flag *pflag.Flag) {
		switch flag.Name {
		case "task-executor-id":
			cfg.TaskExecutorID = o.executorConfig.TaskExecutorID
		case "cluster-id":
			cfg.ClusterID = o.executorConfig.ClusterID
		case "address":
			cfg.Address = o.executorConfig.Address
		case "status-addr":
			cfg.StatusAddr = o.executorConfig.StatusAddr
		case "master-url":
			cfg.Master.URL = o.executorConfig.Master.URL
		case "config":
			// do nothing
		case "log-file":
			cfg.LogConf.File = o.executorConfig.LogConf.File
		case "log-level":
			cfg.LogConf.Level = o.executorConfig.LogConf.Level
		default:
			log.Panic("unknown flag, please report a bug", zap.String("flagName", flag.Name))
		}
	})

	if err := cfg.Adjust(); err != nil {
		return errors.Trace(err)
	}
	o.executorConfig = cfg
	return nil
}

func (o *options) run() error {
	if err := logutil.InitLogger(&o.executorConfig.LogConf); err != nil {
		return errors.Trace(err)
	}
	util.SetGinMode()
	log.L().Info("task executor config", zap.Stringer("config", o.executorConfig))

	ctx, cancel := util.InitCmd()
	defer cancel()

	server := executor.NewServer(o.executorConfig)
	err := server.Run(ctx)
	if err != nil && errors.Cause(err) != context.Canceled {
		log.L().Error("run task executor with error", zap.Error(err))
		return errors.Trace(err)
	}
	log.L().Info("task executor exits successfully")
	return nil
}

// NewCmdExecutor creates the `executor` command.
func NewCmdExecutor() *cobra.Command {
	o := newOptions()

	command := &cobra.Command{
		Use:   "executor",
		Short: "Start a task executor",
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
