package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soupcast/audit"
	"soupcast/history"
	"soupcast/ml"
)

const sampleHistory = `date,weather_code,temperature,ingredient_winter melon,ingredient_pork ribs,ingredient_corn,ingredient_carrot,soup
2024-01-06,0,8,1,1,0,0,Winter Melon Soup
2024-01-07,0,10,1,1,0,0,Winter Melon Soup
2024-01-13,0,9,1,1,0,0,Winter Melon Soup
2024-01-14,1,11,1,1,0,0,Winter Melon Soup
2024-01-20,0,12,1,1,0,0,Winter Melon Soup
2024-01-21,0,9,1,0,0,0,Winter Melon Soup
2024-01-08,3,18,0,1,1,1,Corn Soup
2024-01-09,3,20,0,1,1,1,Corn Soup
2024-01-10,3,21,0,1,1,1,Corn Soup
2024-01-11,3,22,0,1,1,0,Corn Soup
2024-01-15,3,19,0,1,1,1,Corn Soup
2024-01-16,3,20,0,0,1,1,Corn Soup
`

// workspace writes a history file and a config pointing every path into a
// temp dir, returning the config path.
func workspace(t *testing.T, backend string) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "history.csv"), []byte(sampleHistory), 0o600))

	auditPath := filepath.Join(dir, "predictions_log.txt")
	if backend == audit.BackendSQLite {
		auditPath = filepath.Join(dir, "audit.db")
	}
	cfg := fmt.Sprintf(`history:
  path: %s
ml:
  model_dir: %s
  num_trees: 20
audit:
  backend: %s
  path: %s
log:
  level: error
`, filepath.Join(dir, "history.csv"), filepath.Join(dir, "models"), backend, auditPath)
	configPath = filepath.Join(dir, "soupcast.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o600))
	return dir, configPath
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTrainThenPredict(t *testing.T) {
	dir, configPath := workspace(t, audit.BackendText)

	out, err := run(t, "", "train", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 12 history records")
	assert.Contains(t, out, "Evaluation skipped")
	assert.Contains(t, out, "Model saved to")
	assert.Contains(t, out, "Sample (sunny spring Saturday")
	for _, path := range ml.ArtifactPaths(filepath.Join(dir, "models")) {
		assert.FileExists(t, path)
	}

	out, err = run(t, "2024-02-03\n\nrain\n10\npork ribs, winter melon\ny\n", "predict", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "1st choice: ")
	assert.Contains(t, out, "Prediction saved.")

	logged, err := os.ReadFile(filepath.Join(dir, "predictions_log.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(logged), "2024-02-03 | prediction: "))
	assert.Contains(t, string(logged), "| weather: rain 10°C")
}

func TestPredictWithoutModel(t *testing.T) {
	_, configPath := workspace(t, audit.BackendText)

	_, err := run(t, "", "predict", "--config", configPath)
	require.ErrorIs(t, err, ml.ErrMissingArtifact)
	assert.Contains(t, err.Error(), "soupcast train")
}

func TestPredictBatchNoSave(t *testing.T) {
	dir, configPath := workspace(t, audit.BackendText)
	_, err := run(t, "", "train", "--config", configPath)
	require.NoError(t, err)

	batch := filepath.Join(dir, "days.csv")
	require.NoError(t, os.WriteFile(batch, []byte("date,weather,temperature,pantry\n2024-02-03,rain,9,winter melon\n2024-02-05,sunny,21,corn;pork ribs\n"), 0o600))

	out, err := run(t, "", "predict", "--config", configPath, "--batch", batch, "--yes", "--no-save")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-02-03  ")
	assert.Contains(t, out, "2024-02-05  ")
	assert.NoFileExists(t, filepath.Join(dir, "predictions_log.txt"))
}

func TestTrainRecordsSQLiteLog(t *testing.T) {
	dir, configPath := workspace(t, audit.BackendSQLite)
	_, err := run(t, "", "train", "--config", configPath)
	require.NoError(t, err)

	sink, err := audit.NewSQLiteSink(filepath.Join(dir, "audit.db"))
	require.NoError(t, err)
	defer sink.Close()
	entries, err := sink.LoadTrainingLog()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ml.ModelTypeRandomForest, entries[0].ModelName)
	assert.False(t, entries[0].Evaluated)
	assert.Equal(t, string(ml.SplitNone), entries[0].SplitMode)
	assert.Equal(t, 12, entries[0].DataPoints)
}

func TestTrainMissingHistory(t *testing.T) {
	dir, configPath := workspace(t, audit.BackendText)
	require.NoError(t, os.Remove(filepath.Join(dir, "history.csv")))

	_, err := run(t, "", "train", "--config", configPath)
	require.ErrorIs(t, err, history.ErrNotFound)
}

func TestExplicitConfigMustExist(t *testing.T) {
	_, err := run(t, "", "train", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
