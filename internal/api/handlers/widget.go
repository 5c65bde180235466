package handlers

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gometeo/widget/internal/model"
	"github.com/gometeo/widget/internal/widget"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type Pinger interface {
	Ping(ctx context.Context) error
}

type WidgetHandler struct {
	controller *widget.Controller
	store      Pinger
	logger     *slog.Logger
	cookieName string
	cookieTTL  time.Duration
}

func NewWidgetHandler(controller *widget.Controller, store Pinger, cookieName string, cookieTTL time.Duration, logger *slog.Logger) *WidgetHandler {
	return &WidgetHandler{
		controller: controller,
		store:      store,
		logger:     logger,
		cookieName: cookieName,
		cookieTTL:  cookieTTL,
	}
}

// Page renders the whole widget for the caller's session.
func (h *WidgetHandler) Page(w http.ResponseWriter, r *http.Request) {
	id := h.sessionID(w, r)
	st, err := h.controller.State(r.Context(), id)
	if err != nil {
		h.logger.Error("loading session failed", "session", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, "index.html", st.View())
}

// ViewInput handles a keystroke in the location field and returns the
// results fragment.
func (h *WidgetHandler) ViewInput(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id := h.sessionID(w, r)
	st, err := h.controller.InputChanged(r.Context(), id, r.PostForm.Get("value"))
	h.renderResults(w, id, st, err)
}

func (h *WidgetHandler) ViewSelect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id := h.sessionID(w, r)
	st, err := h.controller.SelectSuggestion(r.Context(), id, r.PostForm.Get("suggestion"))
	h.renderResults(w, id, st, err)
}

func (h *WidgetHandler) ViewSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id := h.sessionID(w, r)
	st, err := h.submit(r.Context(), id, r.PostForm.Get("city"))
	h.renderResults(w, id, st, err)
}

// GetState returns the session's view as JSON.
func (h *WidgetHandler) GetState(w http.ResponseWriter, r *http.Request) {
	id := h.sessionID(w, r)
	st, err := h.controller.State(r.Context(), id)
	h.respondView(w, id, st, err)
}

func (h *WidgetHandler) Input(w http.ResponseWriter, r *http.Request) {
	var req model.InputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid JSON", err.Error())
		return
	}
	id := h.sessionID(w, r)
	st, err := h.controller.InputChanged(r.Context(), id, req.Value)
	h.respondView(w, id, st, err)
}

func (h *WidgetHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req model.SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid JSON", err.Error())
		return
	}
	id := h.sessionID(w, r)
	st, err := h.controller.SelectSuggestion(r.Context(), id, req.Suggestion)
	h.respondView(w, id, st, err)
}

// Submit accepts an empty body, in which case the current location text is
// looked up.
func (h *WidgetHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.sendError(w, http.StatusBadRequest, "invalid JSON", err.Error())
		return
	}
	id := h.sessionID(w, r)
	st, err := h.submit(r.Context(), id, req.City)
	h.respondView(w, id, st, err)
}

func (h *WidgetHandler) submit(ctx context.Context, id, city string) (widget.State, error) {
	if strings.TrimSpace(city) == "" {
		return h.controller.Submit(ctx, id)
	}
	return h.controller.FetchWeather(ctx, id, city)
}

// HealthCheck reports whether the session store is reachable.
func (h *WidgetHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}

	if err := h.store.Ping(r.Context()); err != nil {
		health["sessions"] = "unhealthy"
		health["status"] = "degraded"
		h.logger.Error("health check: session store unavailable", "error", err)
	} else {
		health["sessions"] = "healthy"
	}

	status := http.StatusOK
	if health["status"] == "degraded" {
		status = http.StatusServiceUnavailable
	}
	h.sendJSON(w, status, health)
}

// sessionID returns the caller's session id, issuing a new cookie when the
// request has none or an invalid one.
func (h *WidgetHandler) sessionID(w http.ResponseWriter, r *http.Request) string {
	id := ""
	if c, err := r.Cookie(h.cookieName); err == nil {
		if parsed, err := uuid.Parse(c.Value); err == nil {
			id = parsed.String()
		}
	}
	if id == "" {
		id = uuid.NewString()
		h.logger.Debug("new session", "session", id)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *WidgetHandler) respondView(w http.ResponseWriter, id string, st widget.State, err error) {
	if h.abandoned(id, err) {
		return
	}
	if err != nil {
		h.logger.Error("session update failed", "session", id, "error", err)
		h.sendError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	h.sendJSON(w, http.StatusOK, st.View())
}

// abandoned reports whether err only means the client stopped waiting.
func (h *WidgetHandler) abandoned(id string, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.logger.Debug("request abandoned", "session", id, "error", err)
		return true
	}
	return false
}

func (h *WidgetHandler) renderResults(w http.ResponseWriter, id string, st widget.State, err error) {
	if h.abandoned(id, err) {
		return
	}
	if err != nil {
		h.logger.Error("session update failed", "session", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, "results", st.View())
}

func (h *WidgetHandler) render(w http.ResponseWriter, name string, data model.ViewResponse) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("rendering template failed", "template", name, "error", err)
	}
}

func (h *WidgetHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("encoding response failed", "status", status, "error", err)
	}
}

func (h *WidgetHandler) sendError(w http.ResponseWriter, status int, errorMsg, details string) {
	h.sendJSON(w, status, model.ErrorResponse{
		Error:   errorMsg,
		Message: details,
	})
}
