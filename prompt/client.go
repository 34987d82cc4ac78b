// Package prompt composes one authenticated call to the remote prompt API:
// token injection, a single POST, response classification and a best-effort
// diagnostic probe on failure.
package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-prompt-client/identity"
	apperrors "github.com/jrsteele09/go-prompt-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// TokenSource provides bearer tokens for outbound calls. A nil result with
// a nil error means no account is active and the request goes out
// unauthenticated.
type TokenSource interface {
	AccessToken(ctx context.Context, scopes []string) (*identity.AuthResult, error)
}

// Config holds the fixed API endpoints the pipeline talks to.
type Config struct {
	BaseURL    string
	PromptPath string
	DebugPath  string
	Timeout    time.Duration
}

// Client is the request pipeline. It never mutates the account store; its
// only side effects are the network calls and diagnostic logging.
type Client struct {
	config     Config
	tokens     TokenSource
	scopes     []string // minimal scope set required by the API
	httpClient *http.Client
}

// ClientOption modifies a Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client (primarily for testing).
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(config Config, tokens TokenSource, scopes []string, options ...ClientOption) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("[prompt.NewClient] BaseURL is required")
	}
	if tokens == nil {
		return nil, errors.New("[prompt.NewClient] token source is required")
	}
	if config.PromptPath == "" {
		config.PromptPath = "/api/prompt"
	}
	if config.DebugPath == "" {
		config.DebugPath = "/api/debug"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	client := &Client{
		config:     config,
		tokens:     tokens,
		scopes:     scopes,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type promptResponse struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Submit sends one prompt to the API and classifies the result.
// Empty or whitespace-only input short-circuits locally with no network
// call. When an account is active, a token failure produces an auth error
// before any request is issued. The request is attempted exactly once.
func (c *Client) Submit(ctx context.Context, text string) Outcome {
	if strings.TrimSpace(text) == "" {
		return skipped()
	}

	token, err := c.tokens.AccessToken(ctx, c.scopes)
	if err != nil {
		// Auth was attempted and failed: no anonymous fallback request.
		return authError(err.Error())
	}

	outcome := c.send(ctx, text, token)
	if outcome.Kind != OutcomeSuccess {
		// The outcome is already finalized; the probe only enriches logs.
		c.probe(ctx)
	}
	return outcome
}

func (c *Client) send(ctx context.Context, text string, token *identity.AuthResult) Outcome {
	body, err := json.Marshal(promptRequest{Prompt: text})
	if err != nil {
		return networkError(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+c.config.PromptPath, bytes.NewReader(body))
	if err != nil {
		return networkError(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if token != nil {
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("prompt request failed")
		return networkError(err.Error())
	}
	defer resp.Body.Close()

	return classify(resp)
}

func classify(resp *http.Response) Outcome {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpError(resp.StatusCode, errorDetail(raw))
	}

	var parsed promptResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return httpError(resp.StatusCode, "malformed response body")
	}
	if parsed.Response == "" {
		return httpError(resp.StatusCode, apperrors.ErrEmptyResponse.Error())
	}
	return success(parsed.Response)
}

// errorDetail extracts a human-readable message from an error body.
// The API reports validation failures as {"error": ...}; some deployments
// use {"detail": ...} instead.
func errorDetail(raw []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ""
	}
	if parsed.Error != "" {
		return parsed.Error
	}
	return parsed.Detail
}

// probe makes one best-effort call to the diagnostic endpoint. Its own
// failure is swallowed and never changes the reported outcome.
func (c *Client) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+c.config.DebugPath, nil)
	if err != nil {
		return
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("diagnostic probe failed")
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	log.Info().Int("status", resp.StatusCode).Msg("diagnostic probe reached the server")
}
