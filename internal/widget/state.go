package widget

import (
	"context"

	"github.com/gometeo/widget/internal/model"
)

// State is the view state of one widget instance. It is only changed by the
// Controller operations.
type State struct {
	Location        string               `json:"location"`
	Suggestions     []string             `json:"suggestions,omitempty"`
	ShowSuggestions bool                 `json:"show_suggestions"`
	Weather         *model.WeatherResult `json:"weather,omitempty"`
	Error           string               `json:"error,omitempty"`

	// Sequence numbers of the latest suggestion lookup and weather fetch.
	// Responses carrying an older number are dropped.
	SuggestSeq uint64 `json:"suggest_seq"`
	WeatherSeq uint64 `json:"weather_seq"`
}

// Store keeps one State per session id. Load of an unknown id returns the
// zero State. Update applies fn atomically for that id and returns the
// result; fn may run more than once if the store retries.
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Update(ctx context.Context, id string, fn func(*State)) (State, error)
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	if s.Suggestions != nil {
		out.Suggestions = append([]string(nil), s.Suggestions...)
	}
	if s.Weather != nil {
		w := *s.Weather
		out.Weather = &w
	}
	return out
}

func (s *State) clearSuggestions() {
	s.Suggestions = nil
	s.ShowSuggestions = false
}

// View converts the state into its JSON rendition.
func (s State) View() model.ViewResponse {
	v := model.ViewResponse{
		Location:        s.Location,
		Suggestions:     []string{},
		ShowSuggestions: s.ShowSuggestions && len(s.Suggestions) > 0,
		Error:           s.Error,
	}
	if v.ShowSuggestions {
		v.Suggestions = append(v.Suggestions, s.Suggestions...)
	}
	if s.Weather != nil {
		w := *s.Weather
		card := Card(w)
		v.Weather = &w
		v.Card = &card
	}
	return v
}
