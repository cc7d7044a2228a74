package ml

import "sort"

type RankedClass struct {
	Class       int
	Probability float64
}

// RankClasses orders classes by descending probability. Equal probabilities
// keep class index order.
func RankClasses(probs []float64) []RankedClass {
	ranked := make([]RankedClass, len(probs))
	for i, p := range probs {
		ranked[i] = RankedClass{Class: i, Probability: p}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Probability > ranked[b].Probability
	})
	return ranked
}

func TopK(probs []float64, k int) []RankedClass {
	ranked := RankClasses(probs)
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

type FeatureImportance struct {
	Name       string
	Importance float64
}

func RankImportances(names []string, importances []float64) []FeatureImportance {
	ranked := make([]FeatureImportance, 0, len(names))
	for i, name := range names {
		value := 0.0
		if i < len(importances) {
			value = importances[i]
		}
		ranked = append(ranked, FeatureImportance{Name: name, Importance: value})
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Importance > ranked[b].Importance
	})
	return ranked
}
