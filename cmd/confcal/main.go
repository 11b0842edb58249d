package main

import (
	"os"

	"github.com/spf13/cobra"

	"confcal/internal/config"
	appLog "confcal/internal/log"
)

const version = "0.1.0"

// cli holds state shared by every subcommand.
type cli struct {
	configPath string
	debug      bool
	conf       *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "confcal",
		Short:         "Tech conference listings by technology, country and CFP",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "./confcal.yaml", "Path to config file")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(c),
		newListCmd(c),
		newICSCmd(c),
		newSnapshotCmd(c),
	)
	return root
}

func (c *cli) loadConfig() error {
	conf, err := config.Load(c.configPath)
	if err != nil {
		if conf == nil {
			return err
		}
		// Defaults are usable even when the first-run file could not be written.
		appLog.Warn("failed to write default config", err, "config_path", c.configPath)
	}
	conf.Normalize()
	c.conf = conf

	if c.debug {
		appLog.SetLevel(appLog.LevelDebug)
	} else {
		appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	}
	return nil
}

func main() {
	defer appLog.Sync()

	if err := newRootCmd().Execute(); err != nil {
		appLog.Error("confcal failed", err)
		appLog.Sync()
		os.Exit(1)
	}
}
