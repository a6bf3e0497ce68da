package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "zoiner",
		Short:        "Turns mentioned casts into Zora coins",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the yaml config file")

	cmd.AddCommand(
		newServeCommand(&configPath),
		newConsumeCommand(&configPath),
		newPinataCheckCommand(&configPath),
	)

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
