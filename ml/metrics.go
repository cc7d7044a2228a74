package ml

import (
	"errors"
	"sort"
)

type ClassMetrics struct {
	Class     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

type Evaluation struct {
	Samples     int
	Accuracy    float64
	PerClass    []ClassMetrics
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
}

func PredictAll(model MLModel, features [][]float64) ([]int, error) {
	predicted := make([]int, len(features))
	for i, row := range features {
		label, _, err := model.Predict(row)
		if err != nil {
			return nil, err
		}
		predicted[i] = label
	}
	return predicted, nil
}

// Evaluate reports accuracy and per-class precision, recall and F1 for every
// class seen in either truth or predictions. Undefined ratios count as 0.
func Evaluate(truth, predicted []int) (Evaluation, error) {
	if len(truth) == 0 {
		return Evaluation{}, errors.New("nothing to evaluate")
	}
	if len(truth) != len(predicted) {
		return Evaluation{}, errors.New("truth and predictions size mismatch")
	}

	truePositive := make(map[int]int)
	predictedCount := make(map[int]int)
	actualCount := make(map[int]int)
	correct := 0
	for i := range truth {
		actualCount[truth[i]]++
		predictedCount[predicted[i]]++
		if truth[i] == predicted[i] {
			correct++
			truePositive[truth[i]]++
		}
	}

	classes := make([]int, 0, len(actualCount)+len(predictedCount))
	for class := range actualCount {
		classes = append(classes, class)
	}
	for class := range predictedCount {
		if _, ok := actualCount[class]; !ok {
			classes = append(classes, class)
		}
	}
	sort.Ints(classes)

	eval := Evaluation{
		Samples:  len(truth),
		Accuracy: float64(correct) / float64(len(truth)),
		PerClass: make([]ClassMetrics, 0, len(classes)),
	}
	for _, class := range classes {
		m := ClassMetrics{Class: class, Support: actualCount[class]}
		if predictedCount[class] > 0 {
			m.Precision = float64(truePositive[class]) / float64(predictedCount[class])
		}
		if actualCount[class] > 0 {
			m.Recall = float64(truePositive[class]) / float64(actualCount[class])
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		eval.PerClass = append(eval.PerClass, m)

		eval.MacroAvg.Precision += m.Precision
		eval.MacroAvg.Recall += m.Recall
		eval.MacroAvg.F1 += m.F1
		weight := float64(m.Support)
		eval.WeightedAvg.Precision += weight * m.Precision
		eval.WeightedAvg.Recall += weight * m.Recall
		eval.WeightedAvg.F1 += weight * m.F1
	}

	k := float64(len(classes))
	eval.MacroAvg = ClassMetrics{
		Class:     -1,
		Precision: eval.MacroAvg.Precision / k,
		Recall:    eval.MacroAvg.Recall / k,
		F1:        eval.MacroAvg.F1 / k,
		Support:   len(truth),
	}
	total := float64(len(truth))
	eval.WeightedAvg = ClassMetrics{
		Class:     -1,
		Precision: eval.WeightedAvg.Precision / total,
		Recall:    eval.WeightedAvg.Recall / total,
		F1:        eval.WeightedAvg.F1 / total,
		Support:   len(truth),
	}
	return eval, nil
}
