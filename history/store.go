package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"soupcast/ml"
)

var (
	ErrNotFound = errors.New("history file not found")
	ErrFormat   = errors.New("malformed history file")
)

var dateLayouts = []string{ml.DateLayout, "2006/1/2", "2006/01/02", "2006-1-2"}

// Record is one day of cooking history.
type Record struct {
	Date          time.Time
	Weekday       int
	WeatherCode   float64
	Temperature   float64
	Month         int
	SeasonCode    int
	IsWeekend     bool
	FeedbackScore float64
	Ingredients   map[string]bool
	Soup          string
}

// Dataset is a snapshot of the history file. Ingredients keeps the column
// order of the file and is the key set of every record's Ingredients.
type Dataset struct {
	Ingredients []string
	Records     []Record
	// Skipped counts rows without a soup label.
	Skipped int
}

func (d *Dataset) Labels() []string {
	labels := make([]string, len(d.Records))
	for i, rec := range d.Records {
		labels[i] = rec.Soup
	}
	return labels
}

func (d *Dataset) BySoup(soup string) []Record {
	out := make([]Record, 0)
	for _, rec := range d.Records {
		if rec.Soup == soup {
			out = append(out, rec)
		}
	}
	return out
}

type Store interface {
	Load() (*Dataset, error)
	Path() string
}

// CSVStore reads the history spreadsheet export. It never writes.
type CSVStore struct {
	path     string
	encoding string
}

func NewCSVStore(path, encoding string) *CSVStore {
	return &CSVStore{path: path, encoding: encoding}
}

func (s *CSVStore) Path() string {
	return s.path
}

func (s *CSVStore) Load() (*Dataset, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, err
	}
	defer file.Close()

	reader, err := decodeReader(file, s.encoding)
	if err != nil {
		return nil, err
	}
	ds, err := Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return ds, nil
}

// Parse reads history CSV from r. Empty numeric cells read as 0; month,
// season, weekday and weekend are derived from the date when their columns
// are absent or blank.
func Parse(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	headerRow, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: no header row", ErrFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	h := parseHeader(headerRow)
	if !h.has(colSoup) {
		return nil, fmt.Errorf("%w: no soup column", ErrFormat)
	}

	ds := &Dataset{Ingredients: h.ingredients, Records: make([]Record, 0)}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, line, err)
		}
		if isBlank(row) {
			continue
		}
		rec, err := h.record(row)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, line, err)
		}
		if rec.Soup == "" {
			ds.Skipped++
			continue
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

func (h header) record(row []string) (Record, error) {
	rec := Record{
		Soup:        h.cell(row, colSoup),
		Ingredients: make(map[string]bool, len(h.ingredients)),
	}

	var hasDate bool
	if text := h.cell(row, colDate); text != "" {
		date, err := parseDate(text)
		if err != nil {
			return Record{}, err
		}
		rec.Date = date
		hasDate = true
	}

	numbers := []struct {
		column string
		dst    *float64
	}{
		{colWeatherCode, &rec.WeatherCode},
		{colTemperature, &rec.Temperature},
		{colFeedback, &rec.FeedbackScore},
	}
	for _, n := range numbers {
		v, err := parseNumber(h.cell(row, n.column))
		if err != nil {
			return Record{}, fmt.Errorf("%s: %w", n.column, err)
		}
		*n.dst = v
	}

	ints := []struct {
		column string
		dst    *int
	}{
		{colWeekday, &rec.Weekday},
		{colMonth, &rec.Month},
		{colSeasonCode, &rec.SeasonCode},
	}
	for _, n := range ints {
		v, err := parseNumber(h.cell(row, n.column))
		if err != nil {
			return Record{}, fmt.Errorf("%s: %w", n.column, err)
		}
		*n.dst = int(v)
	}

	weekendText := h.cell(row, colIsWeekend)
	weekend, err := parseFlag(weekendText)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", colIsWeekend, err)
	}
	rec.IsWeekend = weekend

	if hasDate {
		if h.cell(row, colWeekday) == "" {
			rec.Weekday = ml.ISOWeekday(rec.Date)
		}
		if h.cell(row, colMonth) == "" {
			rec.Month = int(rec.Date.Month())
		}
	}
	if h.cell(row, colSeasonCode) == "" && rec.Month > 0 {
		rec.SeasonCode = ml.SeasonCode(rec.Month)
	}
	if weekendText == "" && rec.Weekday > 0 {
		rec.IsWeekend = ml.IsWeekend(rec.Weekday)
	}

	for i, ingredient := range h.ingredients {
		cell := ""
		if idx := h.ingredientAt[i]; idx < len(row) {
			cell = strings.TrimSpace(row[idx])
		}
		present, err := parseFlag(cell)
		if err != nil {
			return Record{}, fmt.Errorf("ingredient %s: %w", ingredient, err)
		}
		rec.Ingredients[ingredient] = present
	}
	return rec, nil
}

func parseDate(text string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if date, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", text)
}

func parseNumber(text string) (float64, error) {
	if text == "" {
		return 0, nil
	}
	return strconv.ParseFloat(text, 64)
}

func parseFlag(text string) (bool, error) {
	switch strings.ToLower(text) {
	case "", "0", "false", "no", "n", "否":
		return false, nil
	case "1", "true", "yes", "y", "是":
		return true, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return false, err
	}
	return v > 0, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
