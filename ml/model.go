package ml

import "encoding/json"

// MLModel is a multi-class classifier over dense feature vectors. Labels are
// class indices in [0, NumClasses()).
type MLModel interface {
	Train(features [][]float64, labels []int) error
	Predict(features []float64) (int, float64, error)
	PredictProba(features []float64) ([]float64, error)
	FeatureImportances() []float64
	NumClasses() int
	NumFeatures() int
	Save(path string) error
	Load(path string) error

	json.Marshaler
	json.Unmarshaler
}

const (
	ModelTypeRandomForest = "random_forest"
	ModelTypeDecisionTree = "decision_tree"
)
