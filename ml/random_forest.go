package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
)

type ForestParams struct {
	NumTrees        int `json:"num_trees"`
	MaxDepth        int `json:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split"`
	// MaxFeatures defaults to sqrt(feature count) when zero.
	MaxFeatures   int   `json:"max_features"`
	ClassBalanced bool  `json:"class_balanced"`
	Bootstrap     bool  `json:"bootstrap"`
	Seed          int64 `json:"seed"`
}

// DefaultForestParams keeps trees shallow: history logs are small and deep
// trees memorise individual days.
func DefaultForestParams() ForestParams {
	return ForestParams{
		NumTrees:        100,
		MaxDepth:        5,
		MinSamplesSplit: 2,
		ClassBalanced:   true,
		Bootstrap:       true,
		Seed:            42,
	}
}

// RandomForest averages the class distributions of bootstrapped trees.
type RandomForest struct {
	params      ForestParams
	numClasses  int
	numFeatures int
	trees       []*DecisionTree
	importances []float64
}

type forestState struct {
	Params      ForestParams `json:"params"`
	NumClasses  int          `json:"num_classes"`
	NumFeatures int          `json:"num_features"`
	Importances []float64    `json:"importances"`
	Trees       []treeState  `json:"trees"`
}

func NewRandomForest(params ForestParams, numClasses int) *RandomForest {
	if params.NumTrees <= 0 {
		params.NumTrees = DefaultForestParams().NumTrees
	}
	return &RandomForest{params: params, numClasses: numClasses}
}

func (rf *RandomForest) Train(features [][]float64, labels []int) error {
	if err := validateTrainingSet(features, labels); err != nil {
		return err
	}
	numClasses := rf.numClasses
	if n := maxLabel(labels) + 1; n > numClasses {
		numClasses = n
	}
	numFeatures := len(features[0])
	maxFeatures := rf.params.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(numFeatures)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	weights := sampleWeights(labels, numClasses, rf.params.ClassBalanced)
	rnd := rand.New(rand.NewSource(rf.params.Seed))
	treeParams := normalizeTreeParams(TreeParams{
		MaxDepth:        rf.params.MaxDepth,
		MinSamplesSplit: rf.params.MinSamplesSplit,
		MaxFeatures:     maxFeatures,
		ClassBalanced:   rf.params.ClassBalanced,
		Seed:            rf.params.Seed,
	})

	trees := make([]*DecisionTree, 0, rf.params.NumTrees)
	importances := make([]float64, numFeatures)
	for t := 0; t < rf.params.NumTrees; t++ {
		indices := make([]int, len(labels))
		for i := range indices {
			if rf.params.Bootstrap {
				indices[i] = rnd.Intn(len(labels))
			} else {
				indices[i] = i
			}
		}
		tree := &DecisionTree{params: treeParams}
		tree.fit(features, labels, weights, indices, numClasses, rnd)
		for i, v := range tree.importances {
			importances[i] += v
		}
		trees = append(trees, tree)
	}

	rf.numClasses = numClasses
	rf.numFeatures = numFeatures
	rf.trees = trees
	rf.importances = normalizeSum(importances)
	return nil
}

func (rf *RandomForest) Predict(features []float64) (int, float64, error) {
	probs, err := rf.PredictProba(features)
	if err != nil {
		return 0, 0, err
	}
	label := argmax(probs)
	return label, probs[label], nil
}

func (rf *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if len(rf.trees) == 0 {
		return nil, ErrNotTrained
	}
	probs := make([]float64, rf.numClasses)
	for _, tree := range rf.trees {
		treeProbs, err := tree.PredictProba(features)
		if err != nil {
			return nil, err
		}
		for i, p := range treeProbs {
			probs[i] += p
		}
	}
	for i := range probs {
		probs[i] /= float64(len(rf.trees))
	}
	return probs, nil
}

func (rf *RandomForest) FeatureImportances() []float64 {
	return append([]float64(nil), rf.importances...)
}

func (rf *RandomForest) NumClasses() int  { return rf.numClasses }
func (rf *RandomForest) NumFeatures() int { return rf.numFeatures }

func (rf *RandomForest) MarshalJSON() ([]byte, error) {
	if len(rf.trees) == 0 {
		return nil, ErrNotTrained
	}
	state := forestState{
		Params:      rf.params,
		NumClasses:  rf.numClasses,
		NumFeatures: rf.numFeatures,
		Importances: rf.importances,
		Trees:       make([]treeState, len(rf.trees)),
	}
	for i, tree := range rf.trees {
		state.Trees[i] = tree.state()
	}
	return json.Marshal(state)
}

func (rf *RandomForest) UnmarshalJSON(payload []byte) error {
	var state forestState
	if err := json.Unmarshal(payload, &state); err != nil {
		return err
	}
	if len(state.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	trees := make([]*DecisionTree, len(state.Trees))
	for i, ts := range state.Trees {
		if ts.NumClasses != state.NumClasses || ts.NumFeatures != state.NumFeatures {
			return fmt.Errorf("tree %d shape does not match forest", i)
		}
		tree := &DecisionTree{}
		if err := tree.restore(ts); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
		trees[i] = tree
	}
	rf.params = state.Params
	rf.numClasses = state.NumClasses
	rf.numFeatures = state.NumFeatures
	rf.importances = state.Importances
	rf.trees = trees
	return nil
}

func (rf *RandomForest) Save(path string) error {
	payload, err := json.Marshal(rf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (rf *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, rf)
}
