package predictor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soupcast/audit"
	"soupcast/ml"
)

var sessionNow = time.Date(2024, 2, 2, 20, 0, 0, 0, time.UTC)

func newSession(t *testing.T, input string, sink *recordingSink) (*Session, *strings.Builder) {
	t.Helper()
	model, ds := fixtureModel(t)
	out := &strings.Builder{}
	s := &Session{
		Model:    model,
		Profiles: fixtureProfiles(t, ds),
		In:       strings.NewReader(input),
		Out:      out,
		Now:      func() time.Time { return sessionNow },
	}
	if sink != nil {
		s.Sink = sink
	}
	return s, out
}

func TestSessionRunSaves(t *testing.T) {
	sink := &recordingSink{}
	s, out := newSession(t, "\n\nrain\n10℃\nwinter melon，pork ribs\ny\n", sink)

	res, err := s.Run()
	require.NoError(t, err)
	assert.True(t, res.Saved)

	in := res.Prediction.Inputs
	assert.Equal(t, "2024-02-03", in.Date.Format(ml.DateLayout))
	assert.Equal(t, 6, in.Weekday)
	assert.Equal(t, 10.0, in.Temperature)
	assert.Equal(t, []string{"winter melon", "pork ribs"}, in.Ingredients)

	require.Len(t, sink.records, 1)
	rec := sink.records[0]
	assert.Equal(t, "2024-02-03", rec.Date)
	assert.Equal(t, res.Prediction.Top().Soup, rec.PredictedSoup)
	assert.Equal(t, res.Prediction.Top().Probability, rec.Confidence)
	assert.Equal(t, "rain", rec.Weather)
	assert.Equal(t, sessionNow, rec.CreatedAt)

	text := out.String()
	assert.Contains(t, text, "Soup forecast for 2024-02-03 (Saturday)")
	assert.Contains(t, text, "1st choice: ")
	assert.Contains(t, text, "Model trained 1 day ago on 20 records")
	assert.Contains(t, text, "Prediction saved.")
}

func TestSessionRunDeclined(t *testing.T) {
	sink := &recordingSink{}
	s, _ := newSession(t, "2024-07-03\n\nsunny\n33\ntomato\nn\n", sink)

	res, err := s.Run()
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.Empty(t, sink.records)
	assert.Contains(t, res.Prediction.Reasons, ReasonHot)
}

func TestSessionSinkFailureIsNotFatal(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	s, out := newSession(t, "2024-02-03\n6\nrain\n10\n\n", sink)
	s.AssumeYes = true

	res, err := s.Run()
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.NotNil(t, res.Prediction)
	assert.Contains(t, out.String(), "Prediction not saved: disk full")
}

func TestSessionNoSave(t *testing.T) {
	sink := &recordingSink{}
	s, out := newSession(t, "2024-02-03\n\nrain\n10\n\n", sink)
	s.NoSave = true

	_, err := s.Run()
	require.NoError(t, err)
	assert.Empty(t, sink.records)
	assert.NotContains(t, out.String(), "Save this prediction")
}

func TestSessionWithoutHistory(t *testing.T) {
	s, out := newSession(t, "2024-02-03\n\nrain\n10\npork ribs\n", nil)
	s.Profiles = nil

	res, err := s.Run()
	require.NoError(t, err)
	assert.False(t, res.Explanation.Available)
	assert.Len(t, res.Prediction.Candidates, TopN)
	assert.Contains(t, out.String(), "history unavailable")
}

func TestSessionInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"date", "03/02/2024\n\nrain\n10\n\n"},
		{"weekday", "2024-02-03\n9\nrain\n10\n\n"},
		{"temperature", "2024-02-03\n\nrain\nwarm\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newSession(t, tt.input, nil)
			_, err := s.Run()
			require.ErrorIs(t, err, ml.ErrInputParse)
		})
	}
}

func TestSessionRunBatch(t *testing.T) {
	sink := &recordingSink{}
	s, out := newSession(t, "", sink)
	s.AssumeYes = true

	batch := "date,weekday,weather,temperature,pantry\n" +
		"2024-02-03,,rain,10,winter melon;pork ribs\n" +
		"2024-02-05,,sunny,20,\"pork ribs, corn\"\n" +
		"2024-02-06,,sunny,hot,corn\n"
	results, err := s.RunBatch(strings.NewReader(batch))
	require.ErrorIs(t, err, ml.ErrInputParse)
	require.Len(t, results, 2)
	assert.Len(t, sink.records, 2)
	assert.Equal(t, []string{"pork ribs", "corn"}, results[1].Prediction.Inputs.Ingredients)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "2024-02-03"))
	assert.Contains(t, out.String(), "line 4:")
}

func TestSessionRunBatchEmpty(t *testing.T) {
	s, _ := newSession(t, "", nil)
	_, err := s.RunBatch(strings.NewReader(""))
	require.ErrorIs(t, err, ml.ErrInputParse)
}

func TestSessionRunBatchWithBOM(t *testing.T) {
	s, _ := newSession(t, "", nil)

	batch := "\ufeffdate,weekday,weather,temperature,pantry\n2024-07-03,,sunny,33,tomato\n"
	results, err := s.RunBatch(strings.NewReader(batch))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2024-07-03", results[0].Prediction.Inputs.Date.Format(ml.DateLayout))
}

func TestSessionNoneBackendNeverClaimsSave(t *testing.T) {
	sink, err := audit.Open(audit.BackendNone, "")
	require.NoError(t, err)

	s, out := newSession(t, "2024-02-03\n\nrain\n10\n\ny\n", nil)
	s.Sink = sink

	res, err := s.Run()
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.NotContains(t, out.String(), "Save this prediction")
	assert.NotContains(t, out.String(), "Prediction saved.")

	s, out = newSession(t, "2024-02-03\n\nrain\n10\n\n", nil)
	s.Sink = sink
	s.AssumeYes = true
	res, err = s.Run()
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.NotContains(t, out.String(), "Prediction saved.")
}

func TestSessionRunRejectsNaNTemperature(t *testing.T) {
	s, _ := newSession(t, "2024-02-03\n\nrain\nNaN\n\n", nil)
	_, err := s.Run()
	require.ErrorIs(t, err, ml.ErrInputParse)
}
