// Package server is the demo prompt API. It answers the same contract the
// client speaks in production: POST /api/prompt with canned responses and
// GET /api/debug for diagnostics.
package server

import (
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/jrsteele09/go-prompt-client/internal/config"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env       string
	router    chi.Router
	startedAt time.Time
	requests  atomic.Int64

	pickResponse func() string // injectable for testing
}

// Option modifies a Server instance.
type Option func(*Server)

// WithResponsePicker fixes the canned-response selection (primarily for testing).
func WithResponsePicker(pick func() string) Option {
	return func(s *Server) {
		s.pickResponse = pick
	}
}

func New(config config.Config, options ...Option) *Server {
	s := &Server{
		env:       config.GetEnv(),
		startedAt: time.Now(),
		pickResponse: func() string {
			return cannedResponses[rand.Intn(len(cannedResponses))]
		},
	}
	for _, opt := range options {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(jsonRecoverer)

	r.Post("/api/prompt", s.PromptHandler())
	r.Get("/api/debug", s.DebugHandler())
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	s.router.ServeHTTP(w, r)
}

// jsonRecoverer turns a handler panic into the API's documented error
// shape: 500 with an {"error": ...} body.
func jsonRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				log.Error().Interface("panic", rvr).Str("path", r.URL.Path).Msg("handler panicked")
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, errorResponse{Error: "An error occurred while processing your request."})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
