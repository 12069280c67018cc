package main

import (
	"fmt"
	"os"

	"light_control/internal/config"
	"light_control/internal/logger"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "lightctl",
	Short:         "Control and schedule the four relays of a lighting board",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default configs/config.yml)")
	pf.String("device", "", "board base URL, e.g. http://192.168.29.17")
	pf.String("log-level", "", "debug | info | warn | error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(schedulesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads config.yml plus env and flag overrides, then the logger.
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("error reading config: %w", err)
	}
	return cfg, logger.Get(cfg.LogLevel), nil
}
