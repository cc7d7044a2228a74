package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

// NewModel builds an untrained classifier of the given type.
func NewModel(modelType string, numClasses int, params ForestParams) (MLModel, error) {
	switch modelType {
	case ModelTypeRandomForest, "":
		return NewRandomForest(params, numClasses), nil
	case ModelTypeDecisionTree:
		return NewDecisionTree(TreeParams{
			MaxDepth:        params.MaxDepth,
			MinSamplesSplit: params.MinSamplesSplit,
			ClassBalanced:   params.ClassBalanced,
			Seed:            params.Seed,
		}, numClasses), nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}

func LoadModel(modelType, path string) (MLModel, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeModel(modelType, payload)
}

func decodeModel(modelType string, payload []byte) (MLModel, error) {
	var model MLModel
	switch modelType {
	case ModelTypeRandomForest:
		model = &RandomForest{}
	case ModelTypeDecisionTree:
		model = &DecisionTree{}
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
	if err := json.Unmarshal(payload, model); err != nil {
		return nil, fmt.Errorf("decode %s: %w", modelType, err)
	}
	return model, nil
}
