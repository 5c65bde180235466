package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gometeo/widget/internal/api/handlers"
)

// NewRouter wires the page, the HTML fragment endpoints used by the page
// script, and the JSON API.
func NewRouter(h *handlers.WidgetHandler, logger *slog.Logger) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/", h.Page).Methods(http.MethodGet)

	view := router.PathPrefix("/view").Subrouter()
	view.HandleFunc("/input", h.ViewInput).Methods(http.MethodPost)
	view.HandleFunc("/select", h.ViewSelect).Methods(http.MethodPost)
	view.HandleFunc("/submit", h.ViewSubmit).Methods(http.MethodPost)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/state", h.GetState).Methods(http.MethodGet)
	api.HandleFunc("/input", h.Input).Methods(http.MethodPost)
	api.HandleFunc("/select", h.Select).Methods(http.MethodPost)
	api.HandleFunc("/submit", h.Submit).Methods(http.MethodPost)
	api.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	api.Use(contentTypeMiddleware)

	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware(logger))

	return router
}
