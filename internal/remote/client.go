// Package remote is the outbound GraphQL client for the partner system.
//
// Every call is a POST of {query, variables} to the integration's GraphQL
// endpoint carrying a freshly minted bearer token and an HMAC signature of the
// body. Calls are rate limited and never retried; the partner system re-sends
// directives whose effects did not land.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"orderbridge/internal/metrics"
	"orderbridge/internal/model"
	"orderbridge/internal/token"
	"orderbridge/internal/transport"
)

// maxResponseBytes bounds how much of a partner response is read.
const maxResponseBytes = 10 << 20

// queryExcerptLen is how much of a failing query is kept for diagnostics.
const queryExcerptLen = 120

// Request is a GraphQL request body.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// GraphQLError is returned for every failed partner call: transport failure,
// non-2xx status or a GraphQL errors array. StatusCode is 0 when no response
// was received.
type GraphQLError struct {
	StatusCode int
	Query      string
	Message    string
	Err        error
}

func (e *GraphQLError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("graphql: %s [query: %s]", e.Message, e.Query)
	}
	return fmt.Sprintf("graphql: status %d: %s [query: %s]", e.StatusCode, e.Message, e.Query)
}

func (e *GraphQLError) Unwrap() error {
	return e.Err
}

// Config holds RemoteClient configuration.
type Config struct {
	Credentials model.Credentials
	Tokens      *token.Codec
	TokenTTL    time.Duration

	// RateLimit is the sustained requests per second; 0 disables limiting.
	RateLimit float64
	RateBurst int

	// HTTPClient overrides the default client built on the outbound transport.
	HTTPClient *http.Client
	Logger     *slog.Logger
	Now        func() time.Time
}

// Client issues signed GraphQL calls to the partner system.
type Client struct {
	httpClient *http.Client
	creds      model.Credentials
	tokens     *token.Codec
	tokenTTL   time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Client. Credentials must be complete.
func New(cfg Config) (*Client, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, fmt.Errorf("remote client: %w", err)
	}

	c := &Client{
		httpClient: cfg.HTTPClient,
		creds:      cfg.Credentials,
		tokens:     cfg.Tokens,
		tokenTTL:   cfg.TokenTTL,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport.New(transport.Options{Timeout: 30 * time.Second}),
		}
	}
	if c.tokens == nil {
		c.tokens = token.New()
	}
	if c.tokenTTL <= 0 {
		c.tokenTTL = token.DefaultTTL
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.now == nil {
		c.now = time.Now
	}

	c.limiter = rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return c, nil
}

// RawCall sends req and returns the response's data member.
func (c *Client) RawCall(ctx context.Context, req Request) (json.RawMessage, error) {
	excerpt := Excerpt(req.Query)
	if strings.TrimSpace(req.Query) == "" {
		return nil, &GraphQLError{Message: "query is required", Err: model.ErrInvalidRequest}
	}
	if id, ok := req.Variables["id"]; ok && isBlank(id) {
		return nil, &GraphQLError{Query: excerpt, Message: "variables.id must not be empty", Err: model.ErrInvalidRequest}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &GraphQLError{Query: excerpt, Message: "encoding request", Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		metrics.RemoteCalls.WithLabelValues("rate_limited").Inc()
		return nil, &GraphQLError{Query: excerpt, Message: "rate limiter: " + err.Error(), Err: model.ErrRateLimited}
	}

	httpReq, err := c.newRequest(ctx, body)
	if err != nil {
		return nil, &GraphQLError{Query: excerpt, Message: err.Error(), Err: err}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	metrics.RemoteLatency.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RemoteCalls.WithLabelValues("transport_error").Inc()
		c.logger.Warn("partner call failed", "error", err, "query", excerpt)
		return nil, &GraphQLError{Query: excerpt, Message: err.Error(), Err: fmt.Errorf("%w: %v", model.ErrUpstreamError, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.RemoteCalls.WithLabelValues("transport_error").Inc()
		return nil, &GraphQLError{StatusCode: resp.StatusCode, Query: excerpt, Message: "reading response: " + err.Error(), Err: model.ErrUpstreamError}
	}

	c.logger.Debug("partner call",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"query", excerpt,
	)

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []gqlError      `json:"errors"`
	}
	decodeErr := json.Unmarshal(respBody, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RemoteCalls.WithLabelValues("http_" + strconv.Itoa(resp.StatusCode)).Inc()
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && len(envelope.Errors) > 0 {
			msg = joinMessages(envelope.Errors)
		}
		return nil, &GraphQLError{StatusCode: resp.StatusCode, Query: excerpt, Message: msg, Err: model.ErrUpstreamError}
	}

	if decodeErr != nil {
		metrics.RemoteCalls.WithLabelValues("invalid_response").Inc()
		return nil, &GraphQLError{StatusCode: resp.StatusCode, Query: excerpt, Message: "invalid JSON response", Err: decodeErr}
	}
	if len(envelope.Errors) > 0 {
		metrics.RemoteCalls.WithLabelValues("graphql_error").Inc()
		return nil, &GraphQLError{StatusCode: resp.StatusCode, Query: excerpt, Message: joinMessages(envelope.Errors), Err: model.ErrUpstreamError}
	}

	metrics.RemoteCalls.WithLabelValues("ok").Inc()
	return envelope.Data, nil
}

func (c *Client) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	bearer, err := c.tokens.Mint(c.creds, c.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("minting token: %w", err)
	}
	sig, err := SignatureValue(c.creds.PublicKey, c.creds.SecretKey, body, c.now())
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.creds.GraphQLEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set(SignatureHeader, sig)
	return req, nil
}

// Excerpt collapses whitespace in a query and truncates it for diagnostics.
func Excerpt(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	if len(q) > queryExcerptLen {
		return q[:queryExcerptLen]
	}
	return q
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

type gqlError struct {
	Message string `json:"message"`
}

func joinMessages(errs []gqlError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	if len(msgs) == 0 {
		return "unknown error"
	}
	return strings.Join(msgs, "; ")
}
