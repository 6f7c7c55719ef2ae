package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hanfei1991/rcmanager/pkg/cmd/executor"
	"github.com/hanfei1991/rcmanager/pkg/cmd/master"
)

func main() {
	cmd := &cobra.Command{
		Use:          "rcm",
		Short:        "Resource cluster manager",
		SilenceUsage: true,
	}
	cmd.AddCommand(master.NewCmdMaster())
	cmd.AddCommand(executor.NewCmdExecutor())
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
