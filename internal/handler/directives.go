package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"orderbridge/internal/metrics"
	"orderbridge/internal/middleware"
	"orderbridge/internal/model"
	"orderbridge/internal/token"
)

// handleDirectives authenticates a partner batch and dispatches it.
// POST /{namespace}/{integrationId}
// Authentication runs before the body is read.
func (h *Handler) handleDirectives(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bearer, ok := bearerToken(r)
	if !ok {
		h.reject(w, r, model.NewMalformedPayloadError(model.CodeMissingToken, "missing bearer token"))
		return
	}
	if _, err := h.authenticate(r.PathValue("integrationId"), bearer); err != nil {
		h.reject(w, r, err)
		return
	}

	batch, err := decodeBatch(r)
	if err != nil {
		h.reject(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "dispatching directives",
		slog.Int("directives", len(batch.Directives)),
		slog.String("request_id", middleware.RequestIDFrom(ctx)),
	)

	h.writeJSON(w, http.StatusOK, h.dispatcher.Dispatch(ctx, h.creds, batch.Directives))
}

// handleCreateToken mints a token for the configured key id.
// GET /{namespace}-create/create-paseto
func (h *Handler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	if err := h.creds.Validate(); err != nil {
		h.reject(w, r, model.NewCredentialError(model.CodeNotConfigured, "integration credentials are not configured", err))
		return
	}
	tok, err := h.tokens.Mint(h.creds, h.tokenTTL)
	if err != nil {
		h.writeError(w, model.NewInternalError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, tokenResponse{Token: tok})
}

type tokenResponse struct {
	Token string `json:"token"`
}

// authenticate checks the bearer token against the configured credentials.
// The returned error is always a *model.APIError carrying a protocol code.
func (h *Handler) authenticate(integrationID, bearer string) (*token.Claims, error) {
	if err := h.creds.Validate(); err != nil {
		return nil, model.NewCredentialError(model.CodeNotConfigured, "integration credentials are not configured", err)
	}
	if integrationID != h.creds.IntegrationID {
		return nil, model.NewCredentialError(model.CodeIntegrationIDMatch, "integration id does not match", nil)
	}
	claims, err := h.tokens.Verify(bearer, h.creds)
	if err != nil {
		return nil, tokenError(err)
	}
	return claims, nil
}

// tokenError maps a token verification failure to its protocol error.
func tokenError(err error) *model.APIError {
	switch {
	case errors.Is(err, token.ErrMalformed):
		return model.NewMalformedPayloadError(model.CodeMalformedToken, "bearer token is malformed")
	case errors.Is(err, token.ErrKeyMismatch):
		return model.NewCredentialError(model.CodeUnknownKey, "token key id is not recognized", err)
	case errors.Is(err, token.ErrIntegrationMismatch):
		return model.NewCredentialError(model.CodeIntegrationIDMatch, "integration id does not match", err)
	case errors.Is(err, token.ErrExpired), errors.Is(err, token.ErrNotYetValid):
		return model.NewExpiredTokenError()
	default:
		return model.NewCredentialError(model.CodeDecryptionFailed, "token could not be decrypted", err)
	}
}

// reject writes a protocol error and counts it.
func (h *Handler) reject(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		metrics.AuthFailures.WithLabelValues(apiErr.Code).Inc()
		h.logger.WarnContext(r.Context(), "request rejected",
			slog.String("code", apiErr.Code),
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.RequestIDFrom(r.Context())),
		)
	}
	h.writeError(w, err)
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) < len("Bearer ") || !strings.EqualFold(auth[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(auth[len("Bearer "):])
	return tok, tok != ""
}

// decodeBatch reads the directive batch from the request body.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
func decodeBatch(r *http.Request) (*model.DirectiveBatch, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	var raw struct {
		Directives *[]model.Directive `json:"directives"`
	}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		// Don't expose internal error details to client
		return nil, model.NewMalformedPayloadError(model.CodeMalformedBody, "request body is not valid JSON")
	}
	if raw.Directives == nil {
		return nil, model.NewMalformedPayloadError(model.CodeMissingDirectives, "directives array is required")
	}
	return &model.DirectiveBatch{Directives: *raw.Directives}, nil
}
