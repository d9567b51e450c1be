package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/trustmesh/rpn/logx"
)

var rootCmd = &cobra.Command{
	Use:   "rpn",
	Short: "RPN reputation node CLI",
	Long:  "Command line interface for running and managing a reputation propagation node.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
