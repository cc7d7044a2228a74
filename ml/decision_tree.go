package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
)

var (
	ErrNotTrained   = errors.New("model not trained")
	ErrEmptyDataset = errors.New("training set is empty")
)

// minImpurityDecrease keeps float noise from producing useless splits.
const minImpurityDecrease = 1e-12

type TreeParams struct {
	MaxDepth        int `json:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split"`
	// MaxFeatures is the number of non-constant features examined per split.
	// Zero examines all of them.
	MaxFeatures   int   `json:"max_features"`
	ClassBalanced bool  `json:"class_balanced"`
	Seed          int64 `json:"seed"`
}

// DecisionTree is a CART classifier using weighted gini impurity. Leaves keep
// the weighted class distribution of their samples so the tree can report
// probabilities, not only a label.
type DecisionTree struct {
	params      TreeParams
	numClasses  int
	numFeatures int
	nodes       []TreeNode
	importances []float64
}

type TreeNode struct {
	FeatureIdx   int       `json:"feature_idx"`
	Threshold    float64   `json:"threshold"`
	LeftChild    int       `json:"left_child"`
	RightChild   int       `json:"right_child"`
	ClassLabel   int       `json:"class_label"`
	IsLeaf       bool      `json:"is_leaf"`
	Distribution []float64 `json:"distribution,omitempty"`
}

type treeState struct {
	Params      TreeParams `json:"params"`
	NumClasses  int        `json:"num_classes"`
	NumFeatures int        `json:"num_features"`
	Importances []float64  `json:"importances"`
	Nodes       []TreeNode `json:"nodes"`
}

func NewDecisionTree(params TreeParams, numClasses int) *DecisionTree {
	return &DecisionTree{params: normalizeTreeParams(params), numClasses: numClasses}
}

func normalizeTreeParams(params TreeParams) TreeParams {
	if params.MaxDepth <= 0 {
		params.MaxDepth = 5
	}
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = 2
	}
	return params
}

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	if err := validateTrainingSet(features, labels); err != nil {
		return err
	}
	numClasses := dt.numClasses
	if n := maxLabel(labels) + 1; n > numClasses {
		numClasses = n
	}
	dt.params = normalizeTreeParams(dt.params)
	weights := sampleWeights(labels, numClasses, dt.params.ClassBalanced)
	indices := make([]int, len(labels))
	for i := range indices {
		indices[i] = i
	}
	rnd := rand.New(rand.NewSource(dt.params.Seed))
	dt.fit(features, labels, weights, indices, numClasses, rnd)
	return nil
}

func (dt *DecisionTree) fit(features [][]float64, labels []int, weights []float64, indices []int, numClasses int, rnd *rand.Rand) {
	dt.numClasses = numClasses
	dt.numFeatures = len(features[0])
	builder := &treeBuilder{
		features:    features,
		labels:      labels,
		weights:     weights,
		numClasses:  numClasses,
		params:      dt.params,
		rnd:         rnd,
		importances: make([]float64, dt.numFeatures),
	}
	builder.build(indices, 0)
	dt.nodes = builder.nodes
	dt.importances = normalizeSum(builder.importances)
}

func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	probs, err := dt.PredictProba(features)
	if err != nil {
		return 0, 0, err
	}
	label := argmax(probs)
	return label, probs[label], nil
}

func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	probs := make([]float64, dt.numClasses)
	copy(probs, leaf.Distribution)
	return probs, nil
}

func (dt *DecisionTree) leaf(features []float64) (TreeNode, error) {
	if len(dt.nodes) == 0 {
		return TreeNode{}, ErrNotTrained
	}
	if len(features) != dt.numFeatures {
		return TreeNode{}, fmt.Errorf("expected %d features, got %d", dt.numFeatures, len(features))
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return TreeNode{}, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
}

func (dt *DecisionTree) FeatureImportances() []float64 {
	return append([]float64(nil), dt.importances...)
}

func (dt *DecisionTree) NumClasses() int  { return dt.numClasses }
func (dt *DecisionTree) NumFeatures() int { return dt.numFeatures }

func (dt *DecisionTree) state() treeState {
	return treeState{
		Params:      dt.params,
		NumClasses:  dt.numClasses,
		NumFeatures: dt.numFeatures,
		Importances: dt.importances,
		Nodes:       dt.nodes,
	}
}

func (dt *DecisionTree) restore(state treeState) error {
	if len(state.Nodes) == 0 {
		return ErrNotTrained
	}
	for _, node := range state.Nodes {
		if node.IsLeaf && len(node.Distribution) != state.NumClasses {
			return fmt.Errorf("leaf distribution has %d classes, want %d", len(node.Distribution), state.NumClasses)
		}
	}
	dt.params = state.Params
	dt.numClasses = state.NumClasses
	dt.numFeatures = state.NumFeatures
	dt.importances = state.Importances
	dt.nodes = state.Nodes
	return nil
}

func (dt *DecisionTree) MarshalJSON() ([]byte, error) {
	if len(dt.nodes) == 0 {
		return nil, ErrNotTrained
	}
	return json.Marshal(dt.state())
}

func (dt *DecisionTree) UnmarshalJSON(payload []byte) error {
	var state treeState
	if err := json.Unmarshal(payload, &state); err != nil {
		return err
	}
	return dt.restore(state)
}

func (dt *DecisionTree) Save(path string) error {
	payload, err := json.Marshal(dt)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dt)
}

type treeBuilder struct {
	features    [][]float64
	labels      []int
	weights     []float64
	numClasses  int
	params      TreeParams
	rnd         *rand.Rand
	nodes       []TreeNode
	importances []float64
}

type splitCandidate struct {
	feature   int
	threshold float64
	decrease  float64
}

// build appends the subtree for indices and returns the position of its root.
func (b *treeBuilder) build(indices []int, depth int) int {
	counts, total := b.classWeights(indices)
	pos := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{
		FeatureIdx:   -1,
		LeftChild:    -1,
		RightChild:   -1,
		ClassLabel:   argmax(counts),
		IsLeaf:       true,
		Distribution: distribution(counts, total),
	})
	if depth >= b.params.MaxDepth || len(indices) < b.params.MinSamplesSplit || isPure(counts) {
		return pos
	}

	split, ok := b.bestSplit(indices, counts, total)
	if !ok {
		return pos
	}
	left, right := b.partition(indices, split.feature, split.threshold)
	if len(left) == 0 || len(right) == 0 {
		return pos
	}
	b.importances[split.feature] += split.decrease

	leftPos := b.build(left, depth+1)
	rightPos := b.build(right, depth+1)

	node := &b.nodes[pos]
	node.FeatureIdx = split.feature
	node.Threshold = split.threshold
	node.LeftChild = leftPos
	node.RightChild = rightPos
	node.IsLeaf = false
	node.Distribution = nil
	return pos
}

func (b *treeBuilder) bestSplit(indices []int, parent []float64, total float64) (splitCandidate, bool) {
	numFeatures := len(b.features[0])
	limit := b.params.MaxFeatures
	if limit <= 0 || limit > numFeatures {
		limit = numFeatures
	}
	parentImpurity := gini(parent, total)

	best := splitCandidate{feature: -1, decrease: minImpurityDecrease}
	sorted := make([]int, len(indices))
	left := make([]float64, b.numClasses)
	right := make([]float64, b.numClasses)
	tried := 0
	for _, feature := range b.rnd.Perm(numFeatures) {
		if tried >= limit {
			break
		}
		copy(sorted, indices)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.features[sorted[i]][feature] < b.features[sorted[j]][feature]
		})
		if b.features[sorted[0]][feature] == b.features[sorted[len(sorted)-1]][feature] {
			continue
		}
		tried++

		for c := range left {
			left[c] = 0
		}
		leftWeight := 0.0
		for i := 0; i < len(sorted)-1; i++ {
			idx := sorted[i]
			left[b.labels[idx]] += b.weights[idx]
			leftWeight += b.weights[idx]
			value := b.features[idx][feature]
			next := b.features[sorted[i+1]][feature]
			if value == next {
				continue
			}
			for c := range right {
				right[c] = parent[c] - left[c]
			}
			rightWeight := total - leftWeight
			decrease := total*parentImpurity - leftWeight*gini(left, leftWeight) - rightWeight*gini(right, rightWeight)
			if decrease > best.decrease {
				best = splitCandidate{
					feature:   feature,
					threshold: (value + next) / 2,
					decrease:  decrease,
				}
			}
		}
	}
	return best, best.feature >= 0
}

func (b *treeBuilder) partition(indices []int, feature int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, idx := range indices {
		if b.features[idx][feature] <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

func (b *treeBuilder) classWeights(indices []int) ([]float64, float64) {
	counts := make([]float64, b.numClasses)
	total := 0.0
	for _, idx := range indices {
		counts[b.labels[idx]] += b.weights[idx]
		total += b.weights[idx]
	}
	return counts, total
}

func validateTrainingSet(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return ErrEmptyDataset
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	width := len(features[0])
	if width == 0 {
		return errors.New("feature vectors are empty")
	}
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
	}
	for i, label := range labels {
		if label < 0 {
			return fmt.Errorf("row %d has negative label %d", i, label)
		}
	}
	return nil
}

// sampleWeights mirrors "balanced" class weighting: n / (classes * count).
func sampleWeights(labels []int, numClasses int, balanced bool) []float64 {
	weights := make([]float64, len(labels))
	if !balanced {
		for i := range weights {
			weights[i] = 1
		}
		return weights
	}
	counts := make([]int, numClasses)
	for _, label := range labels {
		counts[label]++
	}
	present := 0
	for _, count := range counts {
		if count > 0 {
			present++
		}
	}
	for i, label := range labels {
		weights[i] = float64(len(labels)) / (float64(present) * float64(counts[label]))
	}
	return weights
}

func gini(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	impurity := 1.0
	for _, count := range counts {
		prob := count / total
		impurity -= prob * prob
	}
	return impurity
}

func distribution(counts []float64, total float64) []float64 {
	probs := make([]float64, len(counts))
	if total <= 0 {
		return probs
	}
	for i, count := range counts {
		probs[i] = count / total
	}
	return probs
}

func isPure(counts []float64) bool {
	nonZero := 0
	for _, count := range counts {
		if count > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// argmax returns the first index holding the maximum.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func maxLabel(labels []int) int {
	best := -1
	for _, label := range labels {
		if label > best {
			best = label
		}
	}
	return best
}

func normalizeSum(values []float64) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	if sum <= 0 {
		return out
	}
	for i, v := range values {
		out[i] = v / sum
	}
	return out
}
