package api_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gometeo/widget/internal/api"
	"github.com/gometeo/widget/internal/api/handlers"
	"github.com/gometeo/widget/internal/model"
	"github.com/gometeo/widget/internal/provider/citysearch"
	"github.com/gometeo/widget/internal/provider/openweather"
	"github.com/gometeo/widget/internal/session"
	"github.com/gometeo/widget/internal/widget"
)

const cookieName = "weather_session"

// providers fakes both upstream APIs.
func providers(t *testing.T) (cities, weather *httptest.Server, searches *atomic.Int32) {
	t.Helper()
	count := &atomic.Int32{}
	cities = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		if r.URL.Query().Get("search") != "Par" {
			_, _ = io.WriteString(w, `{"count": 0}`)
			return
		}
		_, _ = io.WriteString(w, `{"_embedded":{"city:search-results":[
			{"matching_full_name":"Paris, Île-de-France, FR"},
			{"matching_full_name":"Paris, TX, US"}]}}`)
	}))
	weather = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "London", "Paris, TX, US":
			_, _ = io.WriteString(w, `{"name":"London","sys":{"country":"GB"},
				"main":{"temp":15,"humidity":80},
				"weather":[{"description":"light rain"}],
				"wind":{"speed":4.1}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"cod":"404","message":"city not found"}`)
		}
	}))
	t.Cleanup(cities.Close)
	t.Cleanup(weather.Close)
	return cities, weather, count
}

func newServer(t *testing.T) (*httptest.Server, *http.Client, *atomic.Int32) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cities, weather, searches := providers(t)

	store := session.NewMemoryStore(time.Hour)
	ctrl := widget.NewController(
		citysearch.New(cities.URL, time.Second, logger),
		openweather.New(weather.URL, "test-key", time.Second, logger),
		store,
		logger,
	)
	h := handlers.NewWidgetHandler(ctrl, store, cookieName, time.Hour, logger)

	ts := httptest.NewServer(api.NewRouter(h, logger))
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ts, &http.Client{Jar: jar}, searches
}

func postJSON(t *testing.T, c *http.Client, u, body string) model.ViewResponse {
	t.Helper()
	resp, err := c.Post(u, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var v model.ViewResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func postForm(t *testing.T, c *http.Client, u string, form url.Values) string {
	t.Helper()
	resp, err := c.PostForm(u, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestPageIssuesSessionCookie(t *testing.T) {
	ts, c, _ := newServer(t)

	resp, err := c.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `placeholder="Enter city name..."`)
	assert.Contains(t, string(body), "Get Weather")

	u, _ := url.Parse(ts.URL)
	cookies := c.Jar.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, cookieName, cookies[0].Name)
}

func TestJSONSuggestThenSelect(t *testing.T) {
	ts, c, searches := newServer(t)

	v := postJSON(t, c, ts.URL+"/api/v1/input", `{"value":"Pa"}`)
	assert.Empty(t, v.Suggestions)
	assert.False(t, v.ShowSuggestions)
	assert.Equal(t, int32(0), searches.Load())

	v = postJSON(t, c, ts.URL+"/api/v1/input", `{"value":"Par"}`)
	assert.Equal(t, "Par", v.Location)
	assert.True(t, v.ShowSuggestions)
	assert.Equal(t, []string{"Paris, Île-de-France, FR", "Paris, TX, US"}, v.Suggestions)
	assert.Equal(t, int32(1), searches.Load())

	v = postJSON(t, c, ts.URL+"/api/v1/select", `{"suggestion":"Paris, TX, US"}`)
	assert.Equal(t, "Paris, TX, US", v.Location)
	assert.False(t, v.ShowSuggestions)
	assert.Empty(t, v.Suggestions)
	require.NotNil(t, v.Card)
	assert.Equal(t, "London, GB", v.Card.Title)
	assert.Empty(t, v.Error)

	resp, err := c.Get(ts.URL + "/api/v1/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	var state model.ViewResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, v, state)
}

func TestJSONSubmitNotFoundThenFound(t *testing.T) {
	ts, c, _ := newServer(t)

	postJSON(t, c, ts.URL+"/api/v1/input", `{"value":"Atlantis"}`)
	v := postJSON(t, c, ts.URL+"/api/v1/submit", `{}`)
	assert.Equal(t, "City not found! Please try again", v.Error)
	assert.Nil(t, v.Weather)
	assert.Nil(t, v.Card)
	assert.False(t, v.ShowSuggestions)

	postJSON(t, c, ts.URL+"/api/v1/input", `{"value":"London"}`)
	v = postJSON(t, c, ts.URL+"/api/v1/submit", ``)
	assert.Empty(t, v.Error)
	require.NotNil(t, v.Card)
	assert.Equal(t, model.WeatherCard{
		Title:       "London, GB",
		Temperature: "15 °C",
		Condition:   "light rain",
		Emoji:       "🌧️",
		Humidity:    "80%",
		WindSpeed:   "4.1 m/s",
	}, *v.Card)
}

func TestViewFragments(t *testing.T) {
	ts, c, _ := newServer(t)

	html := postForm(t, c, ts.URL+"/view/input", url.Values{"value": {"Par"}})
	assert.Contains(t, html, `data-suggestion="Paris, TX, US"`)
	assert.Less(t, strings.Index(html, "Île-de-France"), strings.Index(html, "Paris, TX, US"))

	html = postForm(t, c, ts.URL+"/view/select", url.Values{"suggestion": {"Paris, TX, US"}})
	assert.NotContains(t, html, "data-suggestion")
	assert.Contains(t, html, "London, GB")
	assert.Contains(t, html, "15 °C")
	assert.Contains(t, html, "4.1 m/s")
	assert.Contains(t, html, "🌧️")

	postForm(t, c, ts.URL+"/view/input", url.Values{"value": {"Atlantis"}})
	html = postForm(t, c, ts.URL+"/view/submit", nil)
	assert.Contains(t, html, "City not found! Please try again")
	assert.NotContains(t, html, `class="card"`)
}

func TestSessionsDoNotLeak(t *testing.T) {
	ts, c, _ := newServer(t)
	postJSON(t, c, ts.URL+"/api/v1/input", `{"value":"London"}`)

	other := &http.Client{}
	resp, err := other.Get(ts.URL + "/api/v1/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	var v model.ViewResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Empty(t, v.Location)
}

func TestBadRequests(t *testing.T) {
	ts, c, _ := newServer(t)

	resp, err := c.Post(ts.URL+"/api/v1/input", "application/json", strings.NewReader(`{"value":`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = c.Get(ts.URL + "/api/v1/input")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	ts, c, _ := newServer(t)

	resp, err := c.Get(ts.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "healthy", health["sessions"])
}

func TestSubmitWithExplicitCity(t *testing.T) {
	ts, c, _ := newServer(t)

	v := postJSON(t, c, ts.URL+"/api/v1/submit", `{"city":"London"}`)
	assert.Empty(t, v.Error)
	require.NotNil(t, v.Card)
	assert.Equal(t, "London, GB", v.Card.Title)

	// The explicit city wins over a location text that was never sent.
	html := postForm(t, c, ts.URL+"/view/submit", url.Values{"city": {"Atlantis"}})
	assert.Contains(t, html, "City not found! Please try again")
}

func TestViewSubmitWithExplicitCity(t *testing.T) {
	ts, c, _ := newServer(t)

	postForm(t, c, ts.URL+"/view/input", url.Values{"value": {"Lond"}})
	html := postForm(t, c, ts.URL+"/view/submit", url.Values{"city": {"London"}})
	assert.Contains(t, html, "London, GB")
	assert.Contains(t, html, "15 °C")
	assert.NotContains(t, html, "City not found")
}
