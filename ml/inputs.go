package ml

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// DateLayout is the date format used on the console and in history files.
const DateLayout = "2006-01-02"

var ErrInputParse = errors.New("invalid input")

// Answers holds the raw strings typed at the prompts. Blank fields take
// their documented defaults.
type Answers struct {
	Date          string
	Weekday       string
	Weather       string
	Temperature   string
	FeedbackScore string
	Pantry        string
}

// ResolveInputs applies defaults and derivations to console answers. A blank
// date means the day after now; a blank weekday is derived from the date.
func ResolveInputs(answers Answers, now time.Time) (RawInputs, error) {
	var raw RawInputs

	dateText := strings.TrimSpace(answers.Date)
	if dateText == "" {
		tomorrow := now.AddDate(0, 0, 1)
		raw.Date = time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, now.Location())
	} else {
		date, err := time.ParseInLocation(DateLayout, dateText, now.Location())
		if err != nil {
			return RawInputs{}, fmt.Errorf("%w: date %q: %v", ErrInputParse, dateText, err)
		}
		raw.Date = date
	}

	weekdayText := strings.TrimSpace(answers.Weekday)
	if weekdayText == "" {
		raw.Weekday = ISOWeekday(raw.Date)
	} else {
		weekday, err := strconv.Atoi(weekdayText)
		if err != nil {
			return RawInputs{}, fmt.Errorf("%w: weekday %q: %v", ErrInputParse, weekdayText, err)
		}
		if weekday < 1 || weekday > 7 {
			return RawInputs{}, fmt.Errorf("%w: weekday %d outside 1-7", ErrInputParse, weekday)
		}
		raw.Weekday = weekday
	}

	raw.Weather = strings.TrimSpace(answers.Weather)

	raw.Temperature = DefaultTemperature
	if text := normalizeNumber(answers.Temperature); text != "" {
		temp, err := parseFinite(text)
		if err != nil {
			return RawInputs{}, fmt.Errorf("%w: temperature %q: %v", ErrInputParse, answers.Temperature, err)
		}
		raw.Temperature = temp
	}

	raw.FeedbackScore = DefaultFeedbackScore
	if text := normalizeNumber(answers.FeedbackScore); text != "" {
		score, err := parseFinite(text)
		if err != nil {
			return RawInputs{}, fmt.Errorf("%w: feedback score %q: %v", ErrInputParse, answers.FeedbackScore, err)
		}
		raw.FeedbackScore = score
	}

	raw.Ingredients = ParsePantry(answers.Pantry)
	return raw, nil
}

// ParsePantry splits a pantry list on ASCII or full-width commas and the
// ideographic enumeration comma.
func ParsePantry(text string) []string {
	folded := width.Fold.String(text)
	parts := strings.FieldsFunc(folded, func(r rune) bool {
		return r == ',' || r == '、' || r == ';'
	})
	items := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		items = append(items, item)
	}
	return items
}

// parseFinite rejects NaN and infinities, which ParseFloat accepts.
func parseFinite(text string) (float64, error) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", text)
	}
	return v, nil
}

func normalizeNumber(text string) string {
	text = strings.TrimSpace(width.Fold.String(text))
	text = strings.TrimSuffix(text, "°C")
	text = strings.TrimSuffix(text, "℃")
	return strings.TrimSpace(text)
}
