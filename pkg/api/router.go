package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jbdamask/coursebot/pkg/rag"
)

type API struct {
	system *rag.System
}

// NewRouter creates and configures the HTTP router.
func NewRouter(system *rag.System) *mux.Router {
	api := &API{system: system}

	router := mux.NewRouter()

	// Logging wraps recovery so a recovered panic is logged with its 500.
	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)
	router.Use(corsMiddleware)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/query", api.handleQuery).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/courses", api.handleCourses).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/clear-session", api.handleClearSession).Methods(http.MethodPost, http.MethodOptions)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return router
}
