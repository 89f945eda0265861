package openfdatest

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Request is one search the server answered
type Request struct {
	Method    string
	Query     url.Values
	UserAgent string
	Accept    string
	Status    int
	Duration  time.Duration
}

// recordRequests captures each request and the status written for it
func (s *Server) recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.mu.Lock()
			s.requests = append(s.requests, Request{
				Method:    r.Method,
				Query:     r.URL.Query(),
				UserAgent: r.UserAgent(),
				Accept:    r.Header.Get("Accept"),
				Status:    ww.Status(),
				Duration:  time.Since(start),
			})
			s.mu.Unlock()
		}()

		next.ServeHTTP(ww, r)
	})
}
