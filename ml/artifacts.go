package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	ModelFileName  = "soup_model.json"
	LabelsFileName = "label_vocabulary.json"
	SchemaFileName = "feature_schema.json"
)

var ErrMissingArtifact = errors.New("model artifact missing")

type ModelMeta struct {
	ModelType string    `json:"model_type"`
	TrainedAt time.Time `json:"trained_at"`
	Records   int       `json:"records"`
}

// TrainedModel is the classifier together with the schema and vocabulary it
// was fitted against. The three are saved and loaded as one unit.
type TrainedModel struct {
	Classifier MLModel
	Labels     *LabelVocabulary
	Schema     FeatureSchema
	Meta       ModelMeta
}

type modelEnvelope struct {
	ModelMeta
	Model json.RawMessage `json:"model"`
}

func (m *TrainedModel) Validate() error {
	if m == nil || m.Classifier == nil || m.Labels == nil {
		return errors.New("trained model is incomplete")
	}
	if m.Classifier.NumClasses() != m.Labels.Len() {
		return fmt.Errorf("classifier has %d classes, vocabulary has %d", m.Classifier.NumClasses(), m.Labels.Len())
	}
	if m.Classifier.NumFeatures() != m.Schema.Len() {
		return fmt.Errorf("classifier expects %d features, schema has %d", m.Classifier.NumFeatures(), m.Schema.Len())
	}
	return nil
}

// Probabilities returns one probability per vocabulary class.
func (m *TrainedModel) Probabilities(vector []float64) ([]float64, error) {
	if len(vector) != m.Schema.Len() {
		return nil, fmt.Errorf("vector has %d features, schema has %d", len(vector), m.Schema.Len())
	}
	return m.Classifier.PredictProba(vector)
}

func ArtifactPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ModelFileName),
		filepath.Join(dir, LabelsFileName),
		filepath.Join(dir, SchemaFileName),
	}
}

// SaveArtifacts writes the three files to temporary names first and renames
// them only when all three were written.
func SaveArtifacts(dir string, model *TrainedModel) error {
	if err := model.Validate(); err != nil {
		return err
	}
	classifier, err := json.Marshal(model.Classifier)
	if err != nil {
		return fmt.Errorf("encode classifier: %w", err)
	}
	modelPayload, err := json.Marshal(modelEnvelope{ModelMeta: model.Meta, Model: classifier})
	if err != nil {
		return err
	}
	labelsPayload, err := json.MarshalIndent(model.Labels, "", "  ")
	if err != nil {
		return err
	}
	schemaPayload, err := json.MarshalIndent(model.Schema, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	paths := ArtifactPaths(dir)
	payloads := [][]byte{modelPayload, labelsPayload, schemaPayload}
	for i, path := range paths {
		if err := os.WriteFile(path+".tmp", payloads[i], 0o600); err != nil {
			removeTemp(paths)
			return err
		}
	}
	for _, path := range paths {
		if err := os.Rename(path+".tmp", path); err != nil {
			removeTemp(paths)
			return err
		}
	}
	return nil
}

func removeTemp(paths []string) {
	for _, path := range paths {
		_ = os.Remove(path + ".tmp")
	}
}

// LoadArtifacts reads the matched triple from dir. A missing file yields
// ErrMissingArtifact.
func LoadArtifacts(dir string) (*TrainedModel, error) {
	paths := ArtifactPaths(dir)
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, path)
			}
			return nil, err
		}
	}

	var envelope modelEnvelope
	if err := readJSON(paths[0], &envelope); err != nil {
		return nil, err
	}
	classifier, err := decodeModel(envelope.ModelType, envelope.Model)
	if err != nil {
		return nil, err
	}
	labels := &LabelVocabulary{}
	if err := readJSON(paths[1], labels); err != nil {
		return nil, err
	}
	var schema FeatureSchema
	if err := readJSON(paths[2], &schema); err != nil {
		return nil, err
	}

	model := &TrainedModel{
		Classifier: classifier,
		Labels:     labels,
		Schema:     schema,
		Meta:       envelope.ModelMeta,
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("artifacts in %s are inconsistent: %w", dir, err)
	}
	return model, nil
}

func readJSON(path string, v any) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
