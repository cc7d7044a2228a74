package trainer

import (
	"fmt"
	"time"

	"soupcast/history"
	"soupcast/logger"
	"soupcast/ml"
)

type Options struct {
	ModelType  string
	Forest     ml.ForestParams
	TestRatio  float64
	MinRecords int
	Now        func() time.Time
}

func DefaultOptions() Options {
	return Options{
		ModelType:  ml.ModelTypeRandomForest,
		Forest:     ml.DefaultForestParams(),
		TestRatio:  0.2,
		MinRecords: 15,
		Now:        time.Now,
	}
}

// Report describes a training run for the operator.
type Report struct {
	Records     int
	Skipped     int
	Ingredients int
	Features    []string
	Classes     []string
	Split       ml.Split
	// Evaluation is nil when nothing was held out.
	Evaluation  *ml.Evaluation
	Importances []ml.FeatureImportance
	// Issues are suspicious history rows; they are still trained on.
	Issues []history.Issue
}

func (r *Report) SingleClass() bool {
	return len(r.Classes) == 1
}

// Train fits a classifier on the dataset and returns it bundled with the
// schema and vocabulary it was fitted against.
func Train(ds *history.Dataset, opts Options) (*ml.TrainedModel, *Report, error) {
	if ds == nil || len(ds.Records) == 0 {
		return nil, nil, fmt.Errorf("%w: no usable history records", ml.ErrEmptyDataset)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := logger.With("records", len(ds.Records))

	schema := ml.NewFeatureSchema(ds.Ingredients)
	vocab := ml.FitLabels(ds.Labels())
	labels, err := vocab.EncodeAll(ds.Labels())
	if err != nil {
		return nil, nil, err
	}
	features := RecordVectors(ds.Records, schema)

	report := &Report{
		Records:     len(ds.Records),
		Skipped:     ds.Skipped,
		Ingredients: len(ds.Ingredients),
		Features:    schema.Names(),
		Classes:     vocab.Classes(),
	}
	report.Issues = history.NewChecker(opts.Now()).Check(ds.Records)
	if len(report.Issues) > 0 {
		log.Warnf("%d suspicious history rows, see the training report", len(report.Issues))
	}
	if report.SingleClass() {
		log.Warnf("only one soup in history (%s); the model will always predict it", report.Classes[0])
	}

	split := ml.SplitDataset(labels, ml.SplitConfig{
		TestRatio:  opts.TestRatio,
		MinRecords: opts.MinRecords,
		Seed:       opts.Forest.Seed,
	})
	report.Split = split
	if split.Note != "" {
		log.Warnf("%s split: %s", split.Mode, split.Note)
	}

	classifier, err := ml.NewModel(opts.ModelType, vocab.Len(), opts.Forest)
	if err != nil {
		return nil, nil, err
	}
	trainX, trainY := ml.Subset(features, labels, split.Train)
	if err := classifier.Train(trainX, trainY); err != nil {
		return nil, nil, fmt.Errorf("fit %s: %w", opts.ModelType, err)
	}
	log.Debugf("fitted %s on %d records", opts.ModelType, len(trainY))

	if len(split.Test) > 0 {
		testX, testY := ml.Subset(features, labels, split.Test)
		predicted, err := ml.PredictAll(classifier, testX)
		if err != nil {
			return nil, nil, err
		}
		eval, err := ml.Evaluate(testY, predicted)
		if err != nil {
			return nil, nil, err
		}
		report.Evaluation = &eval
	}
	report.Importances = ml.RankImportances(schema.Names(), classifier.FeatureImportances())

	modelType := opts.ModelType
	if modelType == "" {
		modelType = ml.ModelTypeRandomForest
	}
	model := &ml.TrainedModel{
		Classifier: classifier,
		Labels:     vocab,
		Schema:     schema,
		Meta: ml.ModelMeta{
			ModelType: modelType,
			TrainedAt: opts.Now().UTC(),
			Records:   len(ds.Records),
		},
	}
	return model, report, nil
}

// RecordVector encodes a history record with the same schema used for
// inference.
func RecordVector(rec history.Record, schema ml.FeatureSchema) []float64 {
	values := map[string]float64{
		ml.FeatureTemperature:   rec.Temperature,
		ml.FeatureWeatherCode:   rec.WeatherCode,
		ml.FeatureMonth:         float64(rec.Month),
		ml.FeatureSeasonCode:    float64(rec.SeasonCode),
		ml.FeatureIsWeekend:     0,
		ml.FeatureFeedbackScore: rec.FeedbackScore,
	}
	if rec.IsWeekend {
		values[ml.FeatureIsWeekend] = 1
	}
	for ingredient, present := range rec.Ingredients {
		if present {
			values[ml.IngredientFeature(ingredient)] = 1
		}
	}
	return ml.FeatureVector(values, schema)
}

func RecordVectors(records []history.Record, schema ml.FeatureSchema) [][]float64 {
	vectors := make([][]float64, len(records))
	for i, rec := range records {
		vectors[i] = RecordVector(rec, schema)
	}
	return vectors
}
