package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"soupcast/audit"
	"soupcast/config"
	"soupcast/history"
	"soupcast/logger"
	"soupcast/ml"
	"soupcast/predictor"
	"soupcast/trainer"
)

func newTrainCmd(opts *globalOptions) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the model on the history file and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			run := func() error { return runTrain(out, opts.cfg, time.Now()) }
			if !watch {
				return run()
			}
			if err := run(); err != nil {
				logger.Errorf("train failed: %v", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return trainer.Watch(ctx, opts.cfg.History.Path, trainer.DefaultSettle, run)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "retrain whenever the history file changes")
	return cmd
}

func runTrain(w io.Writer, cfg *config.Config, now time.Time) error {
	store := history.NewCSVStore(cfg.History.Path, cfg.History.Encoding)
	ds, err := store.Load()
	if err != nil {
		return err
	}

	model, report, err := trainer.Train(ds, trainerOptions(cfg, now))
	if err != nil {
		return err
	}
	report.Write(w)

	if err := ml.SaveArtifacts(cfg.ML.ModelDir, model); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	fmt.Fprintf(w, "Model saved to %s\n", cfg.ML.ModelDir)
	logger.Infof("trained %s on %d records, saved to %s", model.Meta.ModelType, model.Meta.Records, cfg.ML.ModelDir)

	recordTraining(cfg, model, report)
	smokePrediction(w, model)
	return nil
}

func trainerOptions(cfg *config.Config, now time.Time) trainer.Options {
	opts := trainer.DefaultOptions()
	opts.ModelType = cfg.ML.ModelType
	opts.Forest.NumTrees = cfg.ML.NumTrees
	opts.Forest.MaxDepth = cfg.ML.MaxTreeDepth
	opts.Forest.MinSamplesSplit = cfg.ML.MinSamplesSplit
	opts.Forest.ClassBalanced = cfg.ML.ClassBalanced
	opts.Forest.Seed = cfg.ML.Seed
	opts.TestRatio = cfg.ML.Training.TestRatio
	opts.MinRecords = cfg.ML.Training.MinDataPoints
	opts.Now = func() time.Time { return now }
	return opts
}

// recordTraining keeps a training log when the audit backend supports one.
func recordTraining(cfg *config.Config, model *ml.TrainedModel, report *trainer.Report) {
	sink, err := audit.Open(cfg.Audit.Backend, cfg.Audit.Path)
	if err != nil {
		logger.Warnf("open audit sink: %v", err)
		return
	}
	defer sink.Close()
	recorder, ok := sink.(audit.TrainingRecorder)
	if !ok {
		return
	}
	entry := audit.TrainingLog{
		ModelName:  model.Meta.ModelType,
		SplitMode:  string(report.Split.Mode),
		TrainedAt:  model.Meta.TrainedAt,
		DataPoints: report.Records,
	}
	if eval := report.Evaluation; eval != nil {
		entry.Evaluated = true
		entry.Accuracy = eval.Accuracy
		entry.Precision = eval.MacroAvg.Precision
		entry.Recall = eval.MacroAvg.Recall
	}
	if err := recorder.RecordTraining(entry); err != nil {
		logger.Warnf("record training run: %v", err)
	}
}

// smokeScenario is a spring Saturday, sunny and 20°C, with pork ribs and corn
// in the fridge.
func smokeScenario() ml.RawInputs {
	return ml.RawInputs{
		Date:          time.Date(2024, 4, 6, 0, 0, 0, 0, time.Local),
		Weather:       "sunny",
		Temperature:   20,
		FeedbackScore: ml.DefaultFeedbackScore,
		Ingredients:   []string{"pork ribs", "corn"},
	}
}

func smokePrediction(w io.Writer, model *ml.TrainedModel) {
	pred, err := predictor.Predict(model, smokeScenario())
	if err != nil {
		logger.Warnf("sample prediction failed: %v", err)
		return
	}
	top := pred.Top()
	fmt.Fprintf(w, "Sample (sunny spring Saturday, 20°C, pork ribs and corn): %s (%.1f%%)\n", top.Soup, top.Probability*100)
}
