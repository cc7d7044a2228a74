package predictor

import (
	"soupcast/history"
	"soupcast/ml"
)

// Explanation compares a soup's usual ingredients with the pantry.
type Explanation struct {
	Soup string
	// Available is false when no history could be loaded.
	Available bool
	// Known is false when history has no rows for Soup.
	Known   bool
	Typical []string
	Missing []string
}

// Ready reports whether every typical ingredient is at hand.
func (e Explanation) Ready() bool {
	return e.Available && e.Known && len(e.Missing) == 0
}

// Explain looks up soup's typical ingredients, restricted to the ingredients
// the model was trained on. A nil profiles means history is unavailable,
// which only disables the explanation.
func Explain(profiles *history.Profiles, schema ml.FeatureSchema, soup string, pantry []string) Explanation {
	exp := Explanation{Soup: soup}
	if profiles == nil {
		return exp
	}
	exp.Available = true
	profile := profiles.Lookup(soup)
	if profile.Occurrences == 0 {
		return exp
	}
	exp.Known = true
	exp.Typical = knownIngredients(profile.Typical, schema)
	exp.Missing = MissingIngredients(exp.Typical, pantry)
	return exp
}

func knownIngredients(ingredients []string, schema ml.FeatureSchema) []string {
	known := make(map[string]struct{}, schema.Len())
	for _, name := range schema.Ingredients() {
		known[name] = struct{}{}
	}
	out := make([]string, 0, len(ingredients))
	for _, name := range ingredients {
		if _, ok := known[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// MissingIngredients returns the typical ingredients absent from pantry, in
// typical order.
func MissingIngredients(typical, pantry []string) []string {
	have := make(map[string]struct{}, len(pantry))
	for _, item := range pantry {
		have[item] = struct{}{}
	}
	missing := make([]string, 0)
	for _, ingredient := range typical {
		if _, ok := have[ingredient]; !ok {
			missing = append(missing, ingredient)
		}
	}
	return missing
}
