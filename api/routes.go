package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter mounts the editor and configuration endpoints.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(recoverer, requestLogger)
	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	base := router.PathPrefix("/api").Subrouter()
	base.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	sessions := base.PathPrefix("/sessions").Subrouter()
	sessions.HandleFunc("", h.CreateSession).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}", h.GetSession).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}", h.DeleteSession).Methods(http.MethodDelete)
	sessions.HandleFunc("/{id}/actions", h.Dispatch).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/text", h.GetText).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}/text", h.PutText).Methods(http.MethodPut)
	sessions.HandleFunc("/{id}/save", h.Save).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/detect", h.Detect).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/resolve", h.Resolve).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/events", h.Stream).Methods(http.MethodGet)

	configs := base.PathPrefix("/configurations").Subrouter()
	configs.HandleFunc("", h.ListConfigurations).Methods(http.MethodGet)
	configs.HandleFunc("/import", h.Import).Methods(http.MethodPost)
	configs.HandleFunc("/{id}", h.GetConfiguration).Methods(http.MethodGet)
	configs.HandleFunc("/{id}/history", h.History).Methods(http.MethodGet)
	configs.HandleFunc("/{id}/deactivate", h.Deactivate).Methods(http.MethodPost)

	return router
}
