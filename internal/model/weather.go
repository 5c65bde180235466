package model

import "time"

// WeatherResult is the current-conditions record shown on the result card.
type WeatherResult struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Temperature float64 `json:"temperature"`
	Description string  `json:"description"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
}

// WeatherCard holds the display strings of a rendered result card.
type WeatherCard struct {
	Title       string `json:"title"`
	Temperature string `json:"temperature"`
	Condition   string `json:"condition"`
	Emoji       string `json:"emoji"`
	Humidity    string `json:"humidity"`
	WindSpeed   string `json:"wind_speed"`
}

// Observation is published to Kafka after every successful weather fetch.
type Observation struct {
	City      string    `json:"city"`
	Country   string    `json:"country"`
	Temp      float64   `json:"temperature"`
	Condition string    `json:"condition"`
	Humidity  float64   `json:"humidity"`
	WindSpeed float64   `json:"wind_speed"`
	Provider  string    `json:"provider"`
	Timestamp time.Time `json:"timestamp"`
}

// ViewResponse is the JSON rendition of a session's view state.
type ViewResponse struct {
	Location        string         `json:"location"`
	Suggestions     []string       `json:"suggestions"`
	ShowSuggestions bool           `json:"show_suggestions"`
	Weather         *WeatherResult `json:"weather,omitempty"`
	Card            *WeatherCard   `json:"card,omitempty"`
	Error           string         `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type InputRequest struct {
	Value string `json:"value"`
}

type SelectRequest struct {
	Suggestion string `json:"suggestion"`
}

// SubmitRequest asks for the weather of City, or of the current location text
// when City is empty.
type SubmitRequest struct {
	City string `json:"city,omitempty"`
}
