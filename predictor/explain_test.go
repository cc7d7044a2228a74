package predictor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soupcast/history"
	"soupcast/ml"
)

func TestExplainMissingIngredient(t *testing.T) {
	ds := fixtureDataset(t)
	profiles := fixtureProfiles(t, ds)
	schema := ml.NewFeatureSchema(ds.Ingredients)

	exp := Explain(profiles, schema, "Corn Soup", []string{"pork ribs", "corn"})
	assert.True(t, exp.Available)
	assert.True(t, exp.Known)
	assert.Equal(t, []string{"pork ribs", "corn", "carrot"}, exp.Typical)
	assert.Equal(t, []string{"carrot"}, exp.Missing)
	assert.False(t, exp.Ready())
}

func TestExplainReady(t *testing.T) {
	ds := fixtureDataset(t)
	profiles := fixtureProfiles(t, ds)
	schema := ml.NewFeatureSchema(ds.Ingredients)

	exp := Explain(profiles, schema, "Winter Melon Soup", []string{"pork ribs", "winter melon", "ginger"})
	assert.Equal(t, []string{"winter melon", "pork ribs"}, exp.Typical)
	assert.Empty(t, exp.Missing)
	assert.True(t, exp.Ready())
}

func TestExplainUnknownSoup(t *testing.T) {
	ds := fixtureDataset(t)
	profiles := fixtureProfiles(t, ds)
	schema := ml.NewFeatureSchema(ds.Ingredients)

	exp := Explain(profiles, schema, "Lotus Root Soup", nil)
	assert.True(t, exp.Available)
	assert.False(t, exp.Known)
	assert.False(t, exp.Ready())
}

func TestExplainWithoutHistory(t *testing.T) {
	exp := Explain(nil, ml.FeatureSchema{}, "Corn Soup", []string{"corn"})
	assert.False(t, exp.Available)
	assert.False(t, exp.Ready())
	assert.Empty(t, exp.Typical)
}

func TestMissingIngredients(t *testing.T) {
	assert.Equal(t, []string{"carrot", "onion"}, MissingIngredients([]string{"carrot", "corn", "onion"}, []string{"corn"}))
	assert.Empty(t, MissingIngredients(nil, []string{"corn"}))
	assert.Equal(t, []string{"corn"}, MissingIngredients([]string{"corn"}, nil))
}

func TestExplainIgnoresIngredientsUnknownToModel(t *testing.T) {
	model, _ := fixtureModel(t)

	// History gained a ginger column after the model was trained.
	lines := strings.Split(strings.TrimSpace(threeSoupHistory), "\n")
	lines[0] = strings.Replace(lines[0], ",soup", ",ingredient_ginger,soup", 1)
	for i := 1; i < len(lines); i++ {
		ginger := "0"
		if strings.HasSuffix(lines[i], "Corn Soup") {
			ginger = "1"
		}
		at := strings.LastIndex(lines[i], ",")
		lines[i] = lines[i][:at] + "," + ginger + lines[i][at:]
	}
	ds, err := history.Parse(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.Contains(t, ds.Ingredients, "ginger")

	exp := Explain(fixtureProfiles(t, ds), model.Schema, "Corn Soup", []string{"pork ribs", "corn"})
	assert.Equal(t, []string{"pork ribs", "corn", "carrot"}, exp.Typical)
	assert.Equal(t, []string{"carrot"}, exp.Missing)
}
