package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"soupcast/config"
	"soupcast/logger"
)

const DefaultConfigPath = "soupcast.yaml"

type globalOptions struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "soupcast",
		Short:         "Predict tomorrow's soup from the weather, the date and what is in the fridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			if err := logger.Init(logger.Options{
				Level:      cfg.Log.Level,
				File:       cfg.Log.File,
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
			}); err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", DefaultConfigPath, "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	cmd.AddCommand(newTrainCmd(opts), newPredictCmd(opts))
	return cmd
}

func Execute() error {
	// Console logging until the config is read.
	if err := logger.Init(logger.Options{Level: "info"}); err != nil {
		return err
	}
	return NewRootCmd().Execute()
}

// loadConfig falls back to built-in defaults when the default config file
// does not exist. An explicitly named file must exist.
func loadConfig(path string) (*config.Config, error) {
	if path == DefaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			logger.Debugf("%s not found, using defaults", path)
			return config.Load("")
		}
	}
	return config.Load(path)
}
