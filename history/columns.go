package history

import "strings"

const (
	colDate        = "date"
	colWeekday     = "weekday"
	colWeatherCode = "weather_code"
	colTemperature = "temperature"
	colMonth       = "month"
	colSeasonCode  = "season_code"
	colIsWeekend   = "is_weekend"
	colFeedback    = "feedback_score"
	colSoup        = "soup"
)

var ingredientPrefixes = []string{"ingredient_", "食材_"}

// columnAliases accepts the Chinese spreadsheet headers
// alongside the canonical English ones.
var columnAliases = map[string]string{
	"date":           colDate,
	"日期":             colDate,
	"weekday":        colWeekday,
	"星期":             colWeekday,
	"weather_code":   colWeatherCode,
	"天气编码":           colWeatherCode,
	"temperature":    colTemperature,
	"温度":             colTemperature,
	"month":          colMonth,
	"月份":             colMonth,
	"season_code":    colSeasonCode,
	"季节编码":           colSeasonCode,
	"is_weekend":     colIsWeekend,
	"是否周末":           colIsWeekend,
	"feedback_score": colFeedback,
	"反馈分数":           colFeedback,
	"soup":           colSoup,
	"soup_label":     colSoup,
	"汤名":             colSoup,
}

type header struct {
	columns      map[string]int
	ingredients  []string
	ingredientAt []int
}

func parseHeader(row []string) header {
	h := header{columns: make(map[string]int)}
	seen := make(map[string]struct{})
	for i, raw := range row {
		name := strings.TrimSpace(raw)
		if canonical, ok := columnAliases[strings.ToLower(name)]; ok {
			if _, dup := h.columns[canonical]; !dup {
				h.columns[canonical] = i
			}
			continue
		}
		for _, prefix := range ingredientPrefixes {
			ingredient, ok := strings.CutPrefix(name, prefix)
			if !ok {
				continue
			}
			ingredient = strings.TrimSpace(ingredient)
			if ingredient == "" {
				break
			}
			if _, dup := seen[ingredient]; dup {
				break
			}
			seen[ingredient] = struct{}{}
			h.ingredients = append(h.ingredients, ingredient)
			h.ingredientAt = append(h.ingredientAt, i)
			break
		}
	}
	return h
}

func (h header) has(column string) bool {
	_, ok := h.columns[column]
	return ok
}

func (h header) cell(row []string, column string) string {
	idx, ok := h.columns[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
