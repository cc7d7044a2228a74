package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	FeatureTemperature   = "temperature"
	FeatureWeatherCode   = "weather_code"
	FeatureMonth         = "month"
	FeatureSeasonCode    = "season_code"
	FeatureIsWeekend     = "is_weekend"
	FeatureFeedbackScore = "feedback_score"

	// IngredientPrefix marks one-hot pantry features.
	IngredientPrefix = "ingredient_"
)

// NumericFeatureNames lists the situation features in schema order.
func NumericFeatureNames() []string {
	return []string{
		FeatureTemperature,
		FeatureWeatherCode,
		FeatureMonth,
		FeatureSeasonCode,
		FeatureIsWeekend,
		FeatureFeedbackScore,
	}
}

func IngredientFeature(name string) string {
	return IngredientPrefix + name
}

// FeatureSchema is the ordered list of feature names shared by training and
// inference.
type FeatureSchema struct {
	names []string
}

func NewFeatureSchema(ingredients []string) FeatureSchema {
	names := NumericFeatureNames()
	seen := make(map[string]struct{}, len(ingredients))
	for _, ingredient := range ingredients {
		if _, ok := seen[ingredient]; ok || ingredient == "" {
			continue
		}
		seen[ingredient] = struct{}{}
		names = append(names, IngredientFeature(ingredient))
	}
	return FeatureSchema{names: names}
}

func (s FeatureSchema) Names() []string {
	return append([]string(nil), s.names...)
}

func (s FeatureSchema) Len() int {
	return len(s.names)
}

// Ingredients returns the ingredient names in schema order.
func (s FeatureSchema) Ingredients() []string {
	out := make([]string, 0, len(s.names))
	for _, name := range s.names {
		if ingredient, ok := strings.CutPrefix(name, IngredientPrefix); ok {
			out = append(out, ingredient)
		}
	}
	return out
}

type featureSchemaState struct {
	Features []string `json:"features"`
}

func (s FeatureSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(featureSchemaState{Features: s.names})
}

func (s *FeatureSchema) UnmarshalJSON(payload []byte) error {
	var state featureSchemaState
	if err := json.Unmarshal(payload, &state); err != nil {
		return err
	}
	if len(state.Features) == 0 {
		return errors.New("feature schema is empty")
	}
	seen := make(map[string]struct{}, len(state.Features))
	for _, name := range state.Features {
		if _, ok := seen[name]; ok {
			return fmt.Errorf("duplicate feature %q", name)
		}
		seen[name] = struct{}{}
	}
	s.names = state.Features
	return nil
}

// RawInputs describes one day before encoding.
type RawInputs struct {
	Date          time.Time
	Weekday       int
	Weather       string
	Temperature   float64
	FeedbackScore float64
	Ingredients   []string
}

// WeatherCode returns the encoded weather, falling back to the default code.
func (r RawInputs) WeatherCode() int {
	code, _ := WeatherCode(r.Weather)
	return code
}

// IsWeekend uses the explicit weekday, or the date's weekday when unset.
func (r RawInputs) IsWeekend() bool {
	weekday := r.Weekday
	if weekday == 0 {
		weekday = ISOWeekday(r.Date)
	}
	return IsWeekend(weekday)
}

func (r RawInputs) values() map[string]float64 {
	month := int(r.Date.Month())
	values := map[string]float64{
		FeatureTemperature:   r.Temperature,
		FeatureWeatherCode:   float64(r.WeatherCode()),
		FeatureMonth:         float64(month),
		FeatureSeasonCode:    float64(SeasonCode(month)),
		FeatureIsWeekend:     boolFeature(r.IsWeekend()),
		FeatureFeedbackScore: r.FeedbackScore,
	}
	for _, ingredient := range r.Ingredients {
		values[IngredientFeature(strings.TrimSpace(ingredient))] = 1
	}
	return values
}

// Encode turns raw inputs into a vector ordered by schema. Ingredients that the
// schema does not know are ignored.
func Encode(raw RawInputs, schema FeatureSchema) []float64 {
	return FeatureVector(raw.values(), schema)
}

// FeatureVector orders named values by schema; absent names encode as 0.
func FeatureVector(values map[string]float64, schema FeatureSchema) []float64 {
	vector := make([]float64, len(schema.names))
	for i, name := range schema.names {
		vector[i] = values[name]
	}
	return vector
}
