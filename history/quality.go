package history

import (
	"errors"
	"fmt"
	"time"
)

// Issue is a suspicious history row. Issues are reported, the rows are still
// used for training.
type Issue struct {
	Rule    string
	Date    time.Time
	Soup    string
	Message string
}

func (i Issue) String() string {
	date := "undated"
	if !i.Date.IsZero() {
		date = i.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("%s %s: %s", date, i.Soup, i.Message)
}

type Rule interface {
	Name() string
	Check(rec Record) error
}

type CheckStats struct {
	Checked int
	Flagged int
	ByRule  map[string]int
}

// Checker runs quality rules over history records.
type Checker struct {
	rules []Rule
	stats CheckStats
}

// NewChecker returns a checker with the default rules. now bounds the date
// check.
func NewChecker(now time.Time) *Checker {
	c := &Checker{stats: CheckStats{ByRule: make(map[string]int)}}
	c.AddRule(&RangeRule{Field: "temperature", Min: -30, Max: 50, Value: func(r Record) float64 { return r.Temperature }})
	c.AddRule(&RangeRule{Field: "weather_code", Min: 0, Max: 3, Value: func(r Record) float64 { return r.WeatherCode }})
	c.AddRule(&RangeRule{Field: "feedback_score", Min: 0, Max: 100, Value: func(r Record) float64 { return r.FeedbackScore }})
	c.AddRule(&FutureDateRule{Now: now})
	c.AddRule(NewDuplicateRule())
	return c
}

func (c *Checker) AddRule(rule Rule) {
	c.rules = append(c.rules, rule)
}

func (c *Checker) Check(records []Record) []Issue {
	issues := make([]Issue, 0)
	for _, rec := range records {
		c.stats.Checked++
		flagged := false
		for _, rule := range c.rules {
			if err := rule.Check(rec); err != nil {
				issues = append(issues, Issue{Rule: rule.Name(), Date: rec.Date, Soup: rec.Soup, Message: err.Error()})
				c.stats.ByRule[rule.Name()]++
				flagged = true
			}
		}
		if flagged {
			c.stats.Flagged++
		}
	}
	return issues
}

func (c *Checker) Stats() CheckStats {
	return c.stats
}

// RangeRule flags a numeric field outside [Min, Max].
type RangeRule struct {
	Field    string
	Min, Max float64
	Value    func(Record) float64
}

func (r *RangeRule) Name() string {
	return r.Field + "_range"
}

func (r *RangeRule) Check(rec Record) error {
	if v := r.Value(rec); v < r.Min || v > r.Max {
		return fmt.Errorf("%s %g out of range [%g, %g]", r.Field, v, r.Min, r.Max)
	}
	return nil
}

type FutureDateRule struct {
	Now time.Time
}

func (r *FutureDateRule) Name() string {
	return "future_date"
}

func (r *FutureDateRule) Check(rec Record) error {
	if !rec.Date.IsZero() && rec.Date.After(r.Now) {
		return errors.New("date is in the future")
	}
	return nil
}

// DuplicateRule flags the same soup logged twice on one date.
type DuplicateRule struct {
	seen map[string]struct{}
}

func NewDuplicateRule() *DuplicateRule {
	return &DuplicateRule{seen: make(map[string]struct{})}
}

func (r *DuplicateRule) Name() string {
	return "duplicate"
}

func (r *DuplicateRule) Check(rec Record) error {
	if rec.Date.IsZero() {
		return nil
	}
	key := rec.Date.Format("2006-01-02") + "|" + rec.Soup
	if _, ok := r.seen[key]; ok {
		return errors.New("logged more than once")
	}
	r.seen[key] = struct{}{}
	return nil
}
