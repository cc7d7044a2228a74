package ml

import (
	"strings"
	"time"
)

const (
	// DefaultWeatherCode is used for weather words missing from the table.
	DefaultWeatherCode = 2
	// DefaultFeedbackScore is the neutral expectation used at prediction time.
	DefaultFeedbackScore = 75.0
	// DefaultTemperature applies when no temperature is entered.
	DefaultTemperature = 20.0
)

const (
	SeasonSpring = 1
	SeasonSummer = 2
	SeasonAutumn = 3
	SeasonWinter = 4
)

// weatherCodes ranks weather from wet and dark (0) to bright and dry (3).
var weatherCodes = map[string]int{
	"sunny":      3,
	"clear":      3,
	"dry":        3,
	"cloudy":     2,
	"overcast":   1,
	"humid":      1,
	"rain":       0,
	"rainy":      0,
	"light rain": 0,
	"晴":          3,
	"干燥":         3,
	"多云":         2,
	"阴":          1,
	"潮湿":         1,
	"雨":          0,
	"小雨":         0,
}

// WeatherCode maps a weather word to its code. The second result reports
// whether the word was recognised; unknown words get DefaultWeatherCode.
func WeatherCode(weather string) (int, bool) {
	code, ok := weatherCodes[strings.ToLower(strings.TrimSpace(weather))]
	if !ok {
		return DefaultWeatherCode, false
	}
	return code, true
}

func SeasonCode(month int) int {
	switch month {
	case 3, 4, 5:
		return SeasonSpring
	case 6, 7, 8:
		return SeasonSummer
	case 9, 10, 11:
		return SeasonAutumn
	default:
		return SeasonWinter
	}
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func ISOWeekday(date time.Time) int {
	wd := int(date.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func IsWeekend(isoWeekday int) bool {
	return isoWeekday == 6 || isoWeekday == 7
}

func boolFeature(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
