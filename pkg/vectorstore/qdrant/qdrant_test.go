package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jbdamask/coursebot/pkg/vectorstore"
)

func TestSearchSendsFilterAndRestoresIDs(t *testing.T) {
	var searchBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "k" {
			t.Errorf("missing api-key header")
		}
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/points/search"):
			_ = json.NewDecoder(r.Body).Decode(&searchBody)
			_, _ = w.Write([]byte(`{"result":[{"score":0.9,"payload":{"_point_id":"chunk-1","course_title":"AI"}}]}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, APIKey: "k", Collection: "content"})
	matches, err := s.Search(context.Background(), []float64{1, 0}, 3, vectorstore.Filter{Must: map[string]any{"course_title": "AI"}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "chunk-1" || matches[0].Payload["course_title"] != "AI" {
		t.Errorf("unexpected matches: %+v", matches)
	}
	if _, ok := matches[0].Payload["_point_id"]; ok {
		t.Error("internal id key should be stripped")
	}
	filter, ok := searchBody["filter"].(map[string]any)
	if !ok {
		t.Fatalf("filter missing from request: %v", searchBody)
	}
	if must, _ := filter["must"].([]any); len(must) != 1 {
		t.Errorf("unexpected filter: %v", filter)
	}
}

func TestUpsertUsesUUIDPointIDs(t *testing.T) {
	var body struct {
		Points []struct {
			ID      string         `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, Collection: "content"})
	err := s.Upsert(context.Background(), []vectorstore.Point{{ID: "AI:0", Vector: []float64{1}}})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if len(body.Points) != 1 || body.Points[0].ID != pointID("AI:0") || body.Points[0].Payload["_point_id"] != "AI:0" {
		t.Errorf("unexpected upsert body: %+v", body)
	}
}

func TestClearIgnoresMissingCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, Collection: "missing"})
	if err := s.Clear(context.Background()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
