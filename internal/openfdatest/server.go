// Package openfdatest runs a stand-in for the openFDA device/510k endpoint
// inside tests.
package openfdatest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Path is the route openFDA serves 510(k) searches on
const Path = "/device/510k.json"

// Server answers 510(k) searches from a canned record list, or with a fixed
// status/body when one is set.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	records  []map[string]any
	status   int
	rawBody  string
	requests []Request
}

// NewServer starts a server with no records. Close it when done.
func NewServer() *Server {
	s := &Server{}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(s.recordRequests)
	router.Get(Path, s.handleSearch)

	s.Server = httptest.NewServer(router)
	return s
}

// Endpoint returns the full 510(k) endpoint URL
func (s *Server) Endpoint() string {
	return s.Server.URL + Path
}

// SetRecords serves these records as the "results" array
func (s *Server) SetRecords(records ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.status = 0
	s.rawBody = ""
}

// SetResponse makes every request answer with status and body verbatim
func (s *Server) SetResponse(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.rawBody = body
}

// Requests returns every request answered so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status, rawBody := s.status, s.rawBody
	records := s.records
	s.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(rawBody))
		return
	}

	// openFDA answers an empty search with 404 NOT_FOUND
	if len(records) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{
				"code":    "NOT_FOUND",
				"message": "No matches found!",
			},
		})
		return
	}

	limit := len(records)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n < limit {
			limit = n
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"meta": map[string]any{
			"results": map[string]any{
				"skip":  0,
				"limit": limit,
				"total": len(records),
			},
		},
		"results": records[:limit],
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
