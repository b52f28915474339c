// Package handler provides the bridge's inbound HTTP routes.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"orderbridge/internal/directive"
	"orderbridge/internal/metrics"
	"orderbridge/internal/model"
	"orderbridge/internal/token"
)

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// Options configures a Handler.
type Options struct {
	Dispatcher  *directive.Dispatcher
	Tokens      *token.Codec
	Credentials model.Credentials

	// Namespace prefixes the directive and token routes; defaults to "orderbridge".
	Namespace string
	TokenTTL  time.Duration

	// ExposeTokenRoute enables GET /{namespace}-create/create-paseto.
	ExposeTokenRoute bool

	Logger *slog.Logger
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	dispatcher  *directive.Dispatcher
	tokens      *token.Codec
	creds       model.Credentials
	namespace   string
	tokenTTL    time.Duration
	exposeToken bool
	logger      *slog.Logger
}

// New creates a Handler.
func New(opts Options) *Handler {
	h := &Handler{
		dispatcher:  opts.Dispatcher,
		tokens:      opts.Tokens,
		creds:       opts.Credentials,
		namespace:   opts.Namespace,
		tokenTTL:    opts.TokenTTL,
		exposeToken: opts.ExposeTokenRoute,
		logger:      opts.Logger,
	}
	if h.tokens == nil {
		h.tokens = token.New()
	}
	if h.namespace == "" {
		h.namespace = "orderbridge"
	}
	if h.tokenTTL <= 0 {
		h.tokenTTL = token.DefaultTTL
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Partner directive batches
	mux.HandleFunc("POST /"+h.namespace+"/{integrationId}", h.handleDirectives)
	if h.exposeToken {
		mux.HandleFunc("GET /"+h.namespace+"-create/create-paseto", h.handleCreateToken)
	}

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError

	if !errors.As(err, &apiErr) {
		apiErr = &model.APIError{
			Code:       "INTERNAL_ERROR",
			Message:    "an internal error occurred",
			StatusCode: http.StatusInternalServerError,
		}
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple liveness response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
