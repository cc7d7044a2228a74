package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// LabelVocabulary maps soup names to class indices. Classes are sorted so the
// same set of labels always yields the same indices.
type LabelVocabulary struct {
	classes []string
	index   map[string]int
}

func FitLabels(labels []string) *LabelVocabulary {
	seen := make(map[string]struct{}, len(labels))
	classes := make([]string, 0)
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		classes = append(classes, label)
	}
	sort.Strings(classes)
	return newLabelVocabulary(classes)
}

func newLabelVocabulary(classes []string) *LabelVocabulary {
	index := make(map[string]int, len(classes))
	for i, class := range classes {
		index[class] = i
	}
	return &LabelVocabulary{classes: classes, index: index}
}

func (v *LabelVocabulary) Encode(label string) (int, bool) {
	idx, ok := v.index[label]
	return idx, ok
}

func (v *LabelVocabulary) EncodeAll(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, label := range labels {
		idx, ok := v.index[label]
		if !ok {
			return nil, fmt.Errorf("unknown label %q", label)
		}
		out[i] = idx
	}
	return out, nil
}

func (v *LabelVocabulary) Decode(idx int) (string, error) {
	if idx < 0 || idx >= len(v.classes) {
		return "", fmt.Errorf("class index %d out of range", idx)
	}
	return v.classes[idx], nil
}

func (v *LabelVocabulary) Classes() []string {
	return append([]string(nil), v.classes...)
}

func (v *LabelVocabulary) Len() int {
	return len(v.classes)
}

type labelVocabularyState struct {
	Classes []string `json:"classes"`
}

func (v *LabelVocabulary) MarshalJSON() ([]byte, error) {
	return json.Marshal(labelVocabularyState{Classes: v.classes})
}

func (v *LabelVocabulary) UnmarshalJSON(payload []byte) error {
	var state labelVocabularyState
	if err := json.Unmarshal(payload, &state); err != nil {
		return err
	}
	if len(state.Classes) == 0 {
		return errors.New("label vocabulary is empty")
	}
	seen := make(map[string]struct{}, len(state.Classes))
	for _, class := range state.Classes {
		if _, ok := seen[class]; ok {
			return fmt.Errorf("duplicate label %q", class)
		}
		seen[class] = struct{}{}
	}
	*v = *newLabelVocabulary(state.Classes)
	return nil
}
