// Package widget holds the view-model of the weather lookup widget: the per
// session State and the operations that are allowed to change it.
package widget

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gometeo/widget/internal/model"
)

// Input longer than this many characters triggers a suggestion lookup.
const minQueryLength = 2

const providerName = "OpenWeatherMap"

type CitySearcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

type WeatherFetcher interface {
	Current(ctx context.Context, city string) (*model.WeatherResult, error)
}

type ObservationPublisher interface {
	Publish(ctx context.Context, obs model.Observation) error
}

type Controller struct {
	cities    CitySearcher
	weather   WeatherFetcher
	store     Store
	publisher ObservationPublisher
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Controller)

// WithPublisher makes the controller publish every successful fetch.
func WithPublisher(p ObservationPublisher) Option {
	return func(c *Controller) { c.publisher = p }
}

func NewController(cities CitySearcher, weather WeatherFetcher, store Store, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		cities:  cities,
		weather: weather,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current view state of a session.
func (c *Controller) State(ctx context.Context, id string) (State, error) {
	return c.store.Load(ctx, id)
}

// InputChanged records the new text of the location field and refreshes the
// suggestion list. Suggestion failures are logged and never reach the user.
func (c *Controller) InputChanged(ctx context.Context, id, value string) (State, error) {
	lookup := utf8.RuneCountInString(value) > minQueryLength

	var seq uint64
	st, err := c.store.Update(ctx, id, func(s *State) {
		s.Location = value
		s.SuggestSeq++
		seq = s.SuggestSeq
		if !lookup {
			s.clearSuggestions()
		}
	})
	if err != nil || !lookup {
		return st, err
	}

	names, lookupErr := c.cities.Search(ctx, value)
	if err := ctx.Err(); err != nil {
		c.logger.Debug("suggestion lookup abandoned", "session", id, "query", value, "error", err)
		return State{}, err
	}
	if lookupErr != nil {
		c.logger.Warn("suggestion lookup failed", "session", id, "query", value, "error", lookupErr)
	}

	return c.store.Update(ctx, id, func(s *State) {
		if s.SuggestSeq != seq {
			c.logger.Debug("dropping stale suggestions", "session", id, "query", value)
			return
		}
		if lookupErr != nil || len(names) == 0 {
			s.clearSuggestions()
			return
		}
		s.Suggestions = names
		s.ShowSuggestions = true
	})
}

// SelectSuggestion puts the chosen suggestion into the location field, hides
// the list and fetches the weather for it straight away.
func (c *Controller) SelectSuggestion(ctx context.Context, id, suggestion string) (State, error) {
	_, err := c.store.Update(ctx, id, func(s *State) {
		s.Location = suggestion
		s.SuggestSeq++
		s.clearSuggestions()
	})
	if err != nil {
		return State{}, err
	}
	return c.FetchWeather(ctx, id, suggestion)
}

// Submit fetches the weather for the current location text.
func (c *Controller) Submit(ctx context.Context, id string) (State, error) {
	st, err := c.store.Load(ctx, id)
	if err != nil {
		return State{}, err
	}
	return c.FetchWeather(ctx, id, st.Location)
}

// FetchWeather looks up city and stores either the result or an error
// message, never both. A blank city leaves the state untouched, and so does a
// ctx that ends before the provider answers.
func (c *Controller) FetchWeather(ctx context.Context, id, city string) (State, error) {
	if strings.TrimSpace(city) == "" {
		return c.store.Load(ctx, id)
	}

	var seq uint64
	_, err := c.store.Update(ctx, id, func(s *State) {
		s.WeatherSeq++
		seq = s.WeatherSeq
		s.Error = ""
	})
	if err != nil {
		return State{}, err
	}

	res, fetchErr := c.weather.Current(ctx, city)
	if err := ctx.Err(); err != nil {
		// The caller went away; the view keeps its pre-fetch state.
		c.logger.Debug("weather fetch abandoned", "session", id, "city", city, "error", err)
		return State{}, err
	}

	var applied bool
	st, err := c.store.Update(ctx, id, func(s *State) {
		applied = s.WeatherSeq == seq
		if !applied {
			return
		}
		s.ShowSuggestions = false
		if fetchErr != nil {
			s.Weather = nil
			s.Error = fetchErr.Error()
			return
		}
		s.Weather = res
		s.Error = ""
	})
	if err != nil {
		return State{}, err
	}

	switch {
	case !applied:
		c.logger.Debug("dropping stale weather result", "session", id, "city", city)
	case fetchErr != nil:
		c.logger.Info("weather fetch failed", "session", id, "city", city, "error", fetchErr)
	default:
		c.publish(ctx, *res)
	}
	return st, nil
}

func (c *Controller) publish(ctx context.Context, w model.WeatherResult) {
	if c.publisher == nil {
		return
	}
	obs := model.Observation{
		City:      w.City,
		Country:   w.Country,
		Temp:      w.Temperature,
		Condition: w.Description,
		Humidity:  w.Humidity,
		WindSpeed: w.WindSpeed,
		Provider:  providerName,
		Timestamp: c.now(),
	}
	if err := c.publisher.Publish(ctx, obs); err != nil {
		c.logger.Error("publishing observation failed", "city", w.City, "error", err)
	}
}
