package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/jbdamask/coursebot/pkg/history"
	"github.com/jbdamask/coursebot/pkg/tools"
)

type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type QueryResponse struct {
	Answer    string         `json:"answer"`
	Sources   []tools.Source `json:"sources"`
	SessionID string         `json:"session_id"`
}

type ClearSessionRequest struct {
	SessionID string `json:"session_id"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (a *API) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusUnprocessableEntity, "query must not be empty")
		return
	}

	sessions := a.system.Sessions()
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = sessions.Create()
	}

	answer, sources, err := a.system.Query(r.Context(), req.Query, sessionID)
	if err != nil {
		log.WithField("session", sessionID).WithError(err).Error("Query failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sources == nil {
		sources = []tools.Source{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{Answer: answer, Sources: sources, SessionID: sessionID})
}

func (a *API) handleCourses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.system.CourseAnalytics())
}

func (a *API) handleClearSession(w http.ResponseWriter, r *http.Request) {
	var req ClearSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusUnprocessableEntity, "session_id is required")
		return
	}
	if err := a.system.Sessions().Clear(req.SessionID); err != nil && !errors.Is(err, history.ErrSessionNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:  "success",
		Message: fmt.Sprintf("Session %s cleared", req.SessionID),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
