package main

import (
	"fmt"
	"os"

	"github.com/newthinker/lunar/internal/app"
	"github.com/newthinker/lunar/internal/config"
	"github.com/newthinker/lunar/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "lunar",
	Short: "LUNAR - moon phase stock simulator",
	Long: `LUNAR generates synthetic daily stock prices nudged by the moon phase,
summarizes them per phase and draws speculative next-day forecasts.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// loadConfig reads the config file, or defaults when none is given.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Debug("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// withApp handles common setup for every command that needs the simulator.
func withApp(fn func(a *app.App, cfg *config.Config, log *zap.Logger) error) error {
	// The config decides the log level, so bootstrap at the default first.
	boot := logger.Must(debug, "")
	cfg, err := loadConfig(boot)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	log := logger.Must(debug, level)
	defer log.Sync()

	a, err := app.New(cfg, log, app.Options{})
	if err != nil {
		return err
	}
	return fn(a, cfg, log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
