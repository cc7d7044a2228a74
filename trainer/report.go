package trainer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"soupcast/ml"
)

const (
	topImportances = 5
	maxIssues      = 5
)

func (r *Report) Write(w io.Writer) {
	fmt.Fprintf(w, "Loaded %d history records", r.Records)
	if r.Skipped > 0 {
		fmt.Fprintf(w, " (%d rows without a soup skipped)", r.Skipped)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Features: %d (weather, temperature, season, weekend, feedback and %d ingredients)\n",
		len(r.Features), r.Ingredients)
	fmt.Fprintf(w, "Soups: %d (%s)\n", len(r.Classes), strings.Join(r.Classes, ", "))
	if len(r.Issues) > 0 {
		fmt.Fprintf(w, "Data warnings: %d\n", len(r.Issues))
		for i, issue := range r.Issues {
			if i == maxIssues {
				fmt.Fprintf(w, "  ... and %d more\n", len(r.Issues)-maxIssues)
				break
			}
			fmt.Fprintf(w, "  %s\n", issue)
		}
	}

	switch r.Split.Mode {
	case ml.SplitStratified:
		fmt.Fprintf(w, "Split: %d training / %d test records (stratified)\n", len(r.Split.Train), len(r.Split.Test))
	case ml.SplitRandom:
		fmt.Fprintf(w, "Split: %d training / %d test records (random; %s)\n", len(r.Split.Train), len(r.Split.Test), r.Split.Note)
	default:
		fmt.Fprintf(w, "Split: %s\n", r.Split.Note)
	}

	if r.Evaluation == nil {
		fmt.Fprintln(w, "Evaluation skipped: not enough records to hold out a test set")
	} else {
		r.writeEvaluation(w)
	}

	fmt.Fprintln(w, "Most influential features:")
	for i, fi := range r.Importances {
		if i == topImportances {
			break
		}
		fmt.Fprintf(w, "  %s: %.1f%%\n", fi.Name, fi.Importance*100)
	}
	if r.SingleClass() {
		fmt.Fprintf(w, "Only one soup seen; every prediction will be %s\n", r.Classes[0])
	}
}

func (r *Report) writeEvaluation(w io.Writer) {
	eval := r.Evaluation
	fmt.Fprintf(w, "Accuracy: %.1f%% on %d held-out records\n", eval.Accuracy*100, eval.Samples)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\tprecision\trecall\tf1-score\tsupport\t")
	for _, m := range eval.PerClass {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%d\t\n", r.className(m.Class), m.Precision, m.Recall, m.F1, m.Support)
	}
	fmt.Fprintf(tw, "macro avg\t%.2f\t%.2f\t%.2f\t%d\t\n", eval.MacroAvg.Precision, eval.MacroAvg.Recall, eval.MacroAvg.F1, eval.MacroAvg.Support)
	fmt.Fprintf(tw, "weighted avg\t%.2f\t%.2f\t%.2f\t%d\t\n", eval.WeightedAvg.Precision, eval.WeightedAvg.Recall, eval.WeightedAvg.F1, eval.WeightedAvg.Support)
	tw.Flush()
}

func (r *Report) className(class int) string {
	if class >= 0 && class < len(r.Classes) {
		return r.Classes[class]
	}
	return fmt.Sprintf("class %d", class)
}
