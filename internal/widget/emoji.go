package widget

import (
	"strconv"
	"strings"

	"github.com/gometeo/widget/internal/model"
)

const defaultEmoji = "🌤️"

// conditionEmojis is checked in order; the first substring found wins.
var conditionEmojis = []struct {
	substr string
	emoji  string
}{
	{"rain", "🌧️"},
	{"clear", "☀️"},
	{"cloud", "☁️"},
	{"snow", "❄️"},
	{"storm", "🌩️"},
	{"thunder", "🌩️"},
}

// ConditionEmoji picks a symbol for a free-text condition description.
func ConditionEmoji(description string) string {
	d := strings.ToLower(description)
	for _, c := range conditionEmojis {
		if strings.Contains(d, c.substr) {
			return c.emoji
		}
	}
	return defaultEmoji
}

// Card renders the display strings of a weather result.
func Card(w model.WeatherResult) model.WeatherCard {
	return model.WeatherCard{
		Title:       w.City + ", " + w.Country,
		Temperature: formatNumber(w.Temperature) + " °C",
		Condition:   w.Description,
		Emoji:       ConditionEmoji(w.Description),
		Humidity:    formatNumber(w.Humidity) + "%",
		WindSpeed:   formatNumber(w.WindSpeed) + " m/s",
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
