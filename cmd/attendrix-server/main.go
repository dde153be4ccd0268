package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/attendrix/server/internal/logging"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:           "attendrix-server",
		Short:         "Face-recognition attendance server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to attendrix.yaml")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")

	root.AddCommand(newServeCmd())
	root.AddCommand(newSweepCmd())

	if err := root.Execute(); err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}
}
