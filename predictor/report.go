package predictor

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"soupcast/ml"
)

const rule = "=================================================="

// WriteReport prints a prediction the way the console session shows it.
func WriteReport(w io.Writer, pred *Prediction, exp Explanation, meta ml.ModelMeta, now time.Time) {
	in := pred.Inputs
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Soup forecast for %s (%s)\n", in.Date.Format(ml.DateLayout), in.Date.Weekday())
	fmt.Fprintln(w, rule)

	weather := in.Weather
	if weather == "" {
		weather = "unknown"
	}
	dayKind := "weekday"
	if in.IsWeekend() {
		dayKind = "weekend"
	}
	fmt.Fprintf(w, "Conditions: %s (code %d), %s°C, %s\n", weather, in.WeatherCode(), formatTemp(in.Temperature), dayKind)

	top := pred.Top()
	fmt.Fprintf(w, "\n%s choice: %s\n", humanize.Ordinal(top.Rank), top.Soup)
	fmt.Fprintf(w, "   confidence: %.1f%%\n", top.Probability*100)
	if len(pred.Reasons) == 0 {
		fmt.Fprintln(w, "   why: follows your history")
	} else {
		fmt.Fprintf(w, "   why: %s\n", strings.Join(pred.Reasons, "; "))
	}
	if len(in.Ingredients) == 0 {
		fmt.Fprintln(w, "   pantry: nothing in particular")
	} else {
		fmt.Fprintf(w, "   pantry: %s\n", strings.Join(in.Ingredients, ", "))
	}

	fmt.Fprintf(w, "\nTo cook %s:\n", top.Soup)
	writeExplanation(w, exp)

	if secondary := pred.Secondary(); len(secondary) > 0 {
		fmt.Fprintln(w, "\nAlternatives:")
		for _, c := range secondary {
			fmt.Fprintf(w, "   %s. %s (probability %.1f%%)\n", humanize.Ordinal(c.Rank), c.Soup, c.Probability*100)
		}
	}

	fmt.Fprintln(w)
	if !meta.TrainedAt.IsZero() {
		fmt.Fprintf(w, "Model trained %s on %s records\n",
			humanize.RelTime(meta.TrainedAt, now, "ago", "from now"), humanize.Comma(int64(meta.Records)))
	}
	fmt.Fprintln(w, "Predictions follow past habits; the cook may still have other plans.")
	fmt.Fprintln(w, rule)
}

func writeExplanation(w io.Writer, exp Explanation) {
	switch {
	case !exp.Available:
		fmt.Fprintln(w, "   history unavailable, cannot check ingredients")
	case !exp.Known:
		fmt.Fprintln(w, "   no history rows for this soup; check your history records for the recipe")
	default:
		fmt.Fprintf(w, "   usually needs: %s\n", listOrNone(exp.Typical))
		if exp.Ready() {
			fmt.Fprintln(w, "   everything is at hand, ready to cook")
		} else {
			fmt.Fprintf(w, "   missing: %s (consider buying)\n", strings.Join(exp.Missing, ", "))
		}
	}
}

// WriteSummary prints one line per prediction for batch runs.
func WriteSummary(w io.Writer, pred *Prediction, exp Explanation) {
	top := pred.Top()
	line := fmt.Sprintf("%s  %-24s %5.1f%%", pred.Inputs.Date.Format(ml.DateLayout), top.Soup, top.Probability*100)
	switch {
	case exp.Ready():
		line += "  ready to cook"
	case exp.Known && len(exp.Missing) > 0:
		line += "  missing: " + strings.Join(exp.Missing, ", ")
	}
	fmt.Fprintln(w, line)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "no particular ingredients"
	}
	return strings.Join(items, ", ")
}

func formatTemp(t float64) string {
	return humanize.Ftoa(t)
}
