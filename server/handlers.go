package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// cannedResponses mirrors the demo deployment's fixed response set.
var cannedResponses = []string{
	"That's an interesting question! Let me think about it...",
	"I've considered your prompt carefully. Here's my answer.",
	"Based on my knowledge, I would say...",
	"That's a great prompt! Here's what I think.",
	"I've analyzed your question and have the following thoughts.",
	"Interesting perspective! Here's my response.",
	"Let me offer a different viewpoint on that.",
	"I've processed your prompt and here's what I can tell you.",
	"After careful consideration, my response is...",
	"Thank you for your prompt. Here's my answer.",
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type promptResponse struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// PromptHandler validates the prompt and returns a personalized canned
// response. Bearer tokens are decoded only to tag logs with the caller;
// requests without one are served all the same.
func (s *Server) PromptHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logCaller(r)

		var req promptRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "invalid request body"})
			return
		}

		if strings.TrimSpace(req.Prompt) == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "Prompt cannot be empty"})
			return
		}

		personalized := fmt.Sprintf("Response to: '%s'\n\n%s", req.Prompt, s.pickResponse())
		render.JSON(w, r, promptResponse{Response: personalized, Status: "success"})
	}
}

// DebugHandler reports opaque diagnostics. Callers only care that a
// response arrives at all.
func (s *Server) DebugHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"status":   "ok",
			"env":      s.env,
			"uptime":   time.Since(s.startedAt).String(),
			"requests": s.requests.Load(),
		})
	}
}

// logCaller decodes an Authorization bearer token without verifying it.
// The claims are trusted only as log decoration, never for authorization.
func logCaller(r *http.Request) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		log.Debug().Err(err).Msg("could not decode bearer token")
		return
	}

	sub, _ := claims["sub"].(string)
	log.Info().Str("sub", sub).Str("path", r.URL.Path).Msg("authenticated request")
}
