// Package openweather fetches current conditions from the OpenWeatherMap
// "current weather" endpoint in metric units.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gometeo/widget/internal/model"
)

// ErrCityNotFound is returned for every non-2xx response. Its message is
// shown to the user as is.
var ErrCityNotFound = errors.New("City not found! Please try again")

const units = "metric"

// current is the subset of the provider payload the widget uses.
type current struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

func New(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Current returns the current conditions for city.
func (c *Client) Current(ctx context.Context, city string) (*model.WeatherResult, error) {
	endpoint := fmt.Sprintf("%s/data/2.5/weather?q=%s&appid=%s&units=%s",
		c.baseURL, url.QueryEscape(city), url.QueryEscape(c.apiKey), units)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building weather request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// The request URL carries the API key; keep it out of the message.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Info("weather provider rejected city", "city", city, "status", resp.StatusCode)
		return nil, ErrCityNotFound
	}

	var data current
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding weather response: %w", err)
	}
	if len(data.Weather) == 0 {
		return nil, errors.New("weather response has no conditions")
	}

	c.logger.Debug("weather fetched",
		"city", city,
		"duration_ms", time.Since(start).Milliseconds())

	return &model.WeatherResult{
		City:        data.Name,
		Country:     data.Sys.Country,
		Temperature: data.Main.Temp,
		Description: data.Weather[0].Description,
		Humidity:    data.Main.Humidity,
		WindSpeed:   data.Wind.Speed,
	}, nil
}
