package predictor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soupcast/ml"
)

func rainySaturday() ml.RawInputs {
	return ml.RawInputs{
		Date:          time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC),
		Weather:       "rain",
		Temperature:   10,
		FeedbackScore: ml.DefaultFeedbackScore,
		Ingredients:   []string{"winter melon", "pork ribs"},
	}
}

func TestPredictWinterMelonOnRainyWeekend(t *testing.T) {
	model, _ := fixtureModel(t)

	pred, err := Predict(model, rainySaturday())
	require.NoError(t, err)
	require.Len(t, pred.Candidates, TopN)

	var found *Candidate
	for i := range pred.Candidates {
		if pred.Candidates[i].Soup == "Winter Melon Soup" {
			found = &pred.Candidates[i]
		}
	}
	require.NotNil(t, found)
	assert.Greater(t, found.Probability, 0.0)
	assert.Equal(t, []string{ReasonWeekend, ReasonGloomy, ReasonCold}, pred.Reasons)
}

func TestPredictRankingIsOrdered(t *testing.T) {
	model, _ := fixtureModel(t)

	pred, err := Predict(model, rainySaturday())
	require.NoError(t, err)

	total := 0.0
	for _, p := range pred.Probabilities {
		assert.GreaterOrEqual(t, p, 0.0)
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	for i, c := range pred.Candidates {
		assert.Equal(t, i+1, c.Rank)
		assert.Equal(t, pred.Probabilities[c.Class], c.Probability)
		if i > 0 {
			prev := pred.Candidates[i-1]
			assert.GreaterOrEqual(t, prev.Probability, c.Probability)
			if prev.Probability == c.Probability {
				assert.Less(t, prev.Class, c.Class)
			}
		}
	}
}

func TestPredictIgnoresUnknownInputs(t *testing.T) {
	model, _ := fixtureModel(t)

	in := rainySaturday()
	in.Weather = "sleet"
	in.Ingredients = append(in.Ingredients, "dragon fruit")
	pred, err := Predict(model, in)
	require.NoError(t, err)
	assert.Len(t, pred.Candidates, TopN)
	assert.NotContains(t, pred.Reasons, ReasonGloomy)
}

func TestPredictAfterReload(t *testing.T) {
	model, _ := fixtureModel(t)
	dir := filepath.Join(t.TempDir(), "models")
	require.NoError(t, ml.SaveArtifacts(dir, model))

	loaded, err := ml.LoadArtifacts(dir)
	require.NoError(t, err)

	in := rainySaturday()
	before, err := Predict(model, in)
	require.NoError(t, err)
	after, err := Predict(loaded, in)
	require.NoError(t, err)
	assert.Equal(t, before.Candidates, after.Candidates)
	assert.True(t, trainedAt.Equal(loaded.Meta.TrainedAt))
}

func TestPredictMissingArtifacts(t *testing.T) {
	_, err := ml.LoadArtifacts(t.TempDir())
	require.ErrorIs(t, err, ml.ErrMissingArtifact)
}

func TestPredictSmallVocabulary(t *testing.T) {
	model, _ := fixtureModel(t)
	model.Labels = ml.FitLabels([]string{"a", "b"})
	_, err := Predict(model, rainySaturday())
	require.Error(t, err)
}

func TestSecondaryThreshold(t *testing.T) {
	pred := &Prediction{Candidates: []Candidate{
		{Rank: 1, Soup: "A", Probability: 0.90},
		{Rank: 2, Soup: "B", Probability: 0.06},
		{Rank: 3, Soup: "C", Probability: 0.04},
	}}
	assert.Equal(t, []Candidate{{Rank: 2, Soup: "B", Probability: 0.06}}, pred.Secondary())

	single := &Prediction{Candidates: []Candidate{{Rank: 1, Soup: "A", Probability: 1}}}
	assert.Empty(t, single.Secondary())
}

func TestReasons(t *testing.T) {
	weekday := time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   ml.RawInputs
		want []string
	}{
		{"mild sunny weekday", ml.RawInputs{Date: weekday, Weather: "sunny", Temperature: 20}, []string{}},
		{"hot", ml.RawInputs{Date: weekday, Weather: "sunny", Temperature: 33}, []string{ReasonHot}},
		{"overcast", ml.RawInputs{Date: weekday, Weather: "overcast", Temperature: 15}, []string{ReasonGloomy}},
		{"explicit weekend", ml.RawInputs{Date: weekday, Weekday: 7, Weather: "cloudy", Temperature: 28}, []string{ReasonWeekend}},
		{"cold rain", ml.RawInputs{Date: weekday, Weather: "雨", Temperature: 5}, []string{ReasonGloomy, ReasonCold}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reasons(tt.in))
		})
	}
}
