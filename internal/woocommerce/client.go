package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"orderbridge/internal/model"
	"orderbridge/internal/storefront"
	"orderbridge/internal/transport"
)

// =============================================================================
// NONCE AUTHENTICATION STRATEGY
// =============================================================================
//
// The Store API requires a "nonce" for every cart mutation. It is a browser
// CSRF guard, not an API credential, and it is bound to the cart session.
//
// A scratch cart performs one preflight GET /cart when it first mutates, then
// chains the Nonce and Cart-Token headers returned by each mutation into the
// next one:
//
//   quote:  GET /cart → add-item × N → update-customer → (batch) remove-item × N
//
// Scratch carts use a freshly generated Cart-Token. Without one, WooCommerce
// may bind the session to the API credentials and reuse a cart across quotes.
// =============================================================================

const (
	// storeAPIPath is the base path for Store API endpoints.
	storeAPIPath = "/wp-json/wc/store/v1"
	// storeRoutePrefix is the route prefix batch operations are addressed with.
	storeRoutePrefix = "/wc/store/v1"
	// restAPIPath is the base path for REST API v3 endpoints.
	restAPIPath = "/wp-json/wc/v3"
)

// BatchStrategy controls how batch operations are executed.
type BatchStrategy string

const (
	// BatchStrategyMulti uses the /batch endpoint with per-operation headers.
	BatchStrategyMulti BatchStrategy = "multi"

	// BatchStrategySequential executes operations one by one with nonce chaining.
	BatchStrategySequential BatchStrategy = "sequential"
)

// Config holds WooCommerce connection settings.
type Config struct {
	StoreURL      string
	APIKey        string // REST API consumer key
	APISecret     string // REST API consumer secret
	BatchStrategy BatchStrategy
	Timeout       time.Duration
	// Fingerprint presents a Chrome TLS fingerprint; see internal/transport.
	Fingerprint bool
	HTTPClient  *http.Client
}

// Client implements storefront.Storefront for a WooCommerce store.
// Requires WooCommerce 6.9+ for the Store API cart endpoints.
type Client struct {
	httpClient    *http.Client
	storeURL      string
	apiKey        string
	apiSecret     string
	batchStrategy BatchStrategy
}

// generateCartToken creates a random cart token for a new session.
func generateCartToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// New creates a WooCommerce client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("API credentials are required")
	}

	strategy := cfg.BatchStrategy
	if strategy == "" {
		strategy = BatchStrategyMulti
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport.New(transport.Options{Timeout: cfg.Timeout, Fingerprint: cfg.Fingerprint}),
		}
	}

	return &Client{
		httpClient:    httpClient,
		storeURL:      strings.TrimSuffix(cfg.StoreURL, "/"),
		apiKey:        cfg.APIKey,
		apiSecret:     cfg.APISecret,
		batchStrategy: strategy,
	}, nil
}

// NewScratchCart opens a cart session under a fresh Cart-Token. No request is
// made until the first mutation.
func (c *Client) NewScratchCart(_ context.Context) (storefront.ScratchCart, error) {
	return &scratchCart{client: c, token: generateCartToken()}, nil
}

// nonceInfo holds nonce and cart token from a preflight request.
type nonceInfo struct {
	nonce     string
	cartToken string
}

// fetchNonce performs a preflight GET /cart request to obtain a fresh nonce.
func (c *Client) fetchNonce(ctx context.Context, cartToken string) (*nonceInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.storeURL+storeAPIPath+"/cart", nil)
	if err != nil {
		return nil, fmt.Errorf("creating nonce request: %w", err)
	}

	c.setStoreAPIHeaders(req, cartToken, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewUpstreamError("WooCommerce", err)
	}
	defer resp.Body.Close()

	// Drain body to allow connection reuse
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, model.NewRateLimitError("WooCommerce")
		}
		return nil, model.NewUpstreamError("WooCommerce",
			fmt.Errorf("nonce preflight failed with status %d", resp.StatusCode))
	}

	nonce := resp.Header.Get("Nonce")
	if nonce == "" {
		return nil, model.NewUpstreamError("WooCommerce",
			fmt.Errorf("no nonce returned from Store API"))
	}

	// Keep our own token; WooCommerce's is only used when we sent none.
	token := cartToken
	if token == "" {
		token = resp.Header.Get("Cart-Token")
	}

	return &nonceInfo{nonce: nonce, cartToken: token}, nil
}

// setStoreAPIHeaders sets headers for Store API requests.
// The Store API authenticates by Cart-Token and Nonce, not Basic Auth.
func (c *Client) setStoreAPIHeaders(req *http.Request, cartToken, nonce string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if cartToken != "" {
		req.Header.Set("Cart-Token", cartToken)
	}
	if nonce != "" {
		req.Header.Set("Nonce", nonce)
	}
}

// parseErrorResponse converts a WooCommerce error body to an APIError.
// resource names what a 404 refers to.
func (c *Client) parseErrorResponse(resource string, statusCode int, body []byte) error {
	var wcErr WooErrorResponse
	json.Unmarshal(body, &wcErr) // Best effort parse

	switch statusCode {
	case http.StatusNotFound:
		return model.NewNotFoundError(resource)
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.NewUnauthorizedError("WooCommerce authentication failed")
	case http.StatusBadRequest, http.StatusConflict:
		msg := wcErr.Message
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewValidationError(resource, msg)
	case http.StatusTooManyRequests:
		return model.NewRateLimitError("WooCommerce")
	default:
		return model.NewUpstreamError("WooCommerce",
			fmt.Errorf("status %d: %s - %s", statusCode, wcErr.Code, wcErr.Message))
	}
}

// executeBatch dispatches to the configured batch execution strategy.
func (c *Client) executeBatch(ctx context.Context, batch *WooBatchRequest, cartToken, nonce string) (*WooCartResponse, *nonceInfo, error) {
	switch c.batchStrategy {
	case BatchStrategySequential:
		return c.executeBatchSequential(ctx, batch, cartToken, nonce)
	default:
		return c.executeBatchEndpoint(ctx, batch, cartToken, nonce)
	}
}

// executeBatchSequential executes operations one by one, chaining the nonce
// and token each response returns. The cart from the last operation is
// returned instead of re-reading it.
func (c *Client) executeBatchSequential(ctx context.Context, batch *WooBatchRequest, cartToken, nonce string) (*WooCartResponse, *nonceInfo, error) {
	if batch == nil || len(batch.Requests) == 0 {
		return nil, nil, fmt.Errorf("empty batch request")
	}

	session := &nonceInfo{nonce: nonce, cartToken: cartToken}
	var lastCart *WooCartResponse

	for i, op := range batch.Requests {
		cart, next, err := c.executeCartOperation(ctx, op, session)
		if err != nil {
			return nil, nil, fmt.Errorf("operation %d (%s) failed: %w", i, op.Path, err)
		}
		lastCart = cart
		session = next
	}

	return lastCart, session, nil
}

// executeBatchEndpoint executes a batch via the Store API /batch endpoint.
// Sub-operations do not inherit the parent request's headers, so Cart-Token
// and Nonce are injected into each.
func (c *Client) executeBatchEndpoint(ctx context.Context, batch *WooBatchRequest, cartToken, nonce string) (*WooCartResponse, *nonceInfo, error) {
	if batch == nil || len(batch.Requests) == 0 {
		return nil, nil, fmt.Errorf("empty batch request")
	}

	batch.InjectHeaders(map[string]string{
		"Nonce":      nonce,
		"Cart-Token": cartToken,
	})

	batchJSON, err := json.Marshal(batch)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.storeURL+storeAPIPath+"/batch", bytes.NewReader(batchJSON))
	if err != nil {
		return nil, nil, fmt.Errorf("creating batch request: %w", err)
	}
	c.setStoreAPIHeaders(req, cartToken, nonce)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, model.NewUpstreamError("WooCommerce", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading batch response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, nil, c.parseErrorResponse("cart", resp.StatusCode, body)
	}

	var batchResp WooBatchResponse
	if err := json.Unmarshal(body, &batchResp); err != nil {
		return nil, nil, fmt.Errorf("parsing batch response: %w", err)
	}

	session := &nonceInfo{nonce: nonce, cartToken: cartToken}
	if n := resp.Header.Get("Nonce"); n != "" {
		session.nonce = n
	}

	var lastCart *WooCartResponse
	for _, result := range batchResp.Responses {
		if result.Status >= 400 {
			return nil, nil, c.parseErrorResponse("cart", result.Status, result.Body)
		}

		var cart WooCartResponse
		if err := json.Unmarshal(result.Body, &cart); err != nil {
			return nil, nil, fmt.Errorf("parsing batch result: %w", err)
		}
		lastCart = &cart

		if result.Headers.Nonce != "" {
			session.nonce = result.Headers.Nonce
		}
	}

	return lastCart, session, nil
}

// executeCartOperation executes a single cart operation and returns the cart
// state plus the nonce and token to use for the next mutation.
func (c *Client) executeCartOperation(ctx context.Context, op WooBatchOperation, session *nonceInfo) (*WooCartResponse, *nonceInfo, error) {
	path := strings.TrimPrefix(op.Path, storeRoutePrefix)

	var bodyReader io.Reader
	if len(op.Body) > 0 {
		bodyReader = bytes.NewReader(op.Body)
	}

	req, err := http.NewRequestWithContext(ctx, op.Method, c.storeURL+storeAPIPath+path, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	c.setStoreAPIHeaders(req, session.cartToken, session.nonce)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, model.NewUpstreamError("WooCommerce", err)
	}
	defer resp.Body.Close()

	next := &nonceInfo{nonce: session.nonce, cartToken: session.cartToken}
	if n := resp.Header.Get("Nonce"); n != "" {
		next.nonce = n
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, nil, c.parseErrorResponse("product", resp.StatusCode, body)
	}

	var cart WooCartResponse
	if err := json.Unmarshal(body, &cart); err != nil {
		return nil, nil, fmt.Errorf("parsing cart response: %w", err)
	}

	return &cart, next, nil
}

// doREST performs a REST API v3 request with consumer key Basic Auth and
// decodes the JSON response into out when non-nil.
func (c *Client) doREST(ctx context.Context, method, path string, query url.Values, in, out any, resource string) error {
	u := c.storeURL + restAPIPath + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling %s request: %w", resource, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", resource, err)
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewUpstreamError("WooCommerce", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", resource, err)
	}

	if resp.StatusCode >= 400 {
		return c.parseErrorResponse(resource, resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing %s response: %w", resource, err)
	}
	return nil
}

var _ storefront.Storefront = (*Client)(nil)
