package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"soupcast/audit"
	"soupcast/config"
	"soupcast/history"
	"soupcast/logger"
	"soupcast/ml"
	"soupcast/predictor"
)

func newPredictCmd(opts *globalOptions) *cobra.Command {
	var (
		batch  string
		yes    bool
		noSave bool
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Ask about tomorrow and predict the soup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			model, err := ml.LoadArtifacts(cfg.ML.ModelDir)
			if errors.Is(err, ml.ErrMissingArtifact) {
				return fmt.Errorf("%w; run `soupcast train` first", err)
			}
			if err != nil {
				return err
			}

			session := &predictor.Session{
				Model:     model,
				Profiles:  loadProfiles(cfg),
				In:        cmd.InOrStdin(),
				Out:       cmd.OutOrStdout(),
				Now:       time.Now,
				AssumeYes: yes,
				NoSave:    noSave,
			}
			if !noSave {
				sink, err := audit.Open(cfg.Audit.Backend, cfg.Audit.Path)
				if err != nil {
					logger.Warnf("predictions will not be saved: %v", err)
				} else {
					defer sink.Close()
					session.Sink = sink
				}
			}

			if batch == "" {
				_, err = session.Run()
				return err
			}
			file, err := os.Open(batch)
			if err != nil {
				return err
			}
			defer file.Close()
			_, err = session.RunBatch(file)
			return err
		},
	}
	cmd.Flags().StringVar(&batch, "batch", "", "CSV of days to predict (date, weekday, weather, temperature, pantry)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "save predictions without asking")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "never save predictions")
	return cmd
}

// loadProfiles returns nil when history cannot be read; predictions still
// work, only the ingredient check is lost.
func loadProfiles(cfg *config.Config) *history.Profiles {
	ds, err := history.NewCSVStore(cfg.History.Path, cfg.History.Encoding).Load()
	if err != nil {
		logger.Warnf("history unavailable: %v", err)
		return nil
	}
	profiles, err := history.NewProfiles(ds, cfg.ML.ProfileCacheSize)
	if err != nil {
		logger.Warnf("history unavailable: %v", err)
		return nil
	}
	return profiles
}
