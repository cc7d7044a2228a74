package predictor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"soupcast/audit"
	"soupcast/history"
	"soupcast/ml"
	"soupcast/trainer"
)

// Winter melon on cold rainy weekends, corn on mild sunny weekdays, tomato
// egg on hot cloudy weekdays.
const threeSoupHistory = `date,weather_code,temperature,ingredient_winter melon,ingredient_pork ribs,ingredient_corn,ingredient_carrot,ingredient_tomato,ingredient_egg,soup
2024-01-06,0,8,1,1,0,0,0,0,Winter Melon Soup
2024-01-07,0,10,1,1,0,0,0,0,Winter Melon Soup
2024-01-13,0,9,1,1,0,0,0,0,Winter Melon Soup
2024-01-14,1,11,1,1,0,0,0,0,Winter Melon Soup
2024-01-20,0,12,1,1,0,0,0,0,Winter Melon Soup
2024-01-21,0,9,1,0,0,0,0,0,Winter Melon Soup
2024-01-27,1,10,1,1,0,0,0,0,Winter Melon Soup
2024-01-08,3,18,0,1,1,1,0,0,Corn Soup
2024-01-09,3,20,0,1,1,1,0,0,Corn Soup
2024-01-10,3,21,0,1,1,1,0,0,Corn Soup
2024-01-11,3,22,0,1,1,0,0,0,Corn Soup
2024-01-15,3,19,0,1,1,1,0,0,Corn Soup
2024-01-16,3,20,0,0,1,1,0,0,Corn Soup
2024-01-17,3,22,0,1,1,1,0,0,Corn Soup
2024-01-18,2,29,0,0,0,0,1,1,Tomato Egg Soup
2024-01-19,2,31,0,0,0,0,1,1,Tomato Egg Soup
2024-01-22,2,30,0,0,0,0,1,1,Tomato Egg Soup
2024-01-23,2,32,0,0,0,0,1,0,Tomato Egg Soup
2024-01-24,2,30,0,0,0,0,1,1,Tomato Egg Soup
2024-01-25,2,29,0,0,0,0,1,1,Tomato Egg Soup
`

var trainedAt = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

func fixtureDataset(t *testing.T) *history.Dataset {
	t.Helper()
	ds, err := history.Parse(strings.NewReader(threeSoupHistory))
	require.NoError(t, err)
	require.Len(t, ds.Records, 20)
	return ds
}

func fixtureModel(t *testing.T) (*ml.TrainedModel, *history.Dataset) {
	t.Helper()
	ds := fixtureDataset(t)
	opts := trainer.DefaultOptions()
	opts.Forest.NumTrees = 50
	opts.Now = func() time.Time { return trainedAt }
	model, _, err := trainer.Train(ds, opts)
	require.NoError(t, err)
	return model, ds
}

func fixtureProfiles(t *testing.T, ds *history.Dataset) *history.Profiles {
	t.Helper()
	profiles, err := history.NewProfiles(ds, 8)
	require.NoError(t, err)
	return profiles
}

type recordingSink struct {
	records []audit.PredictionRecord
	err     error
}

func (s *recordingSink) RecordPrediction(rec audit.PredictionRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingSink) Close() error { return nil }
