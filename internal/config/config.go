// Package config handles loading and validation of service configuration.
// Supports both development (env vars or a config file) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"gopkg.in/yaml.v3"

	"orderbridge/internal/model"
	"orderbridge/internal/token"
)

// Storefront kinds.
const (
	StorefrontWooCommerce = "woocommerce"
	StorefrontMemory      = "memory"
)

// Config holds all service configuration.
// Environment determines whether secrets load from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// RouteNamespace prefixes the directive route: POST /{namespace}/{integrationId}.
	RouteNamespace string

	// GCP settings (required in production)
	GCPProject string
	SecretID   string

	// Storefront selects the storefront binding: "woocommerce" or "memory".
	Storefront string

	TokenTTL time.Duration

	// RedisURL enables the shared tax cache; empty keeps it in process memory.
	RedisURL string

	// Outbound partner call limiter; 0 disables it.
	PartnerRateLimit float64
	PartnerRateBurst int

	// Credentials may be incomplete: the directive route then answers Error-203.
	Credentials model.Credentials
	Store       StoreConfig
}

// StoreConfig contains WooCommerce connection settings.
// In production, this is loaded from Secret Manager together with the credentials.
type StoreConfig struct {
	StoreURL      string `json:"store_url" yaml:"store_url"`
	APIKey        string `json:"api_key" yaml:"api_key"`
	APISecret     string `json:"api_secret" yaml:"api_secret"`
	BatchStrategy string `json:"batch_strategy,omitempty" yaml:"batch_strategy"` // "multi" or "sequential"
	Fingerprint   bool   `json:"fingerprint,omitempty" yaml:"fingerprint"`
}

// secretPayload is the JSON document stored in Secret Manager.
type secretPayload struct {
	Credentials model.Credentials `json:"credentials"`
	Store       StoreConfig       `json:"store"`
}

// fileConfig matches the CONFIG_FILE layout in both JSON and YAML.
type fileConfig struct {
	Port             string            `json:"port" yaml:"port"`
	Environment      string            `json:"environment" yaml:"environment"`
	LogLevel         string            `json:"log_level" yaml:"log_level"`
	RouteNamespace   string            `json:"route_namespace" yaml:"route_namespace"`
	Storefront       string            `json:"storefront" yaml:"storefront"`
	TokenTTL         string            `json:"token_ttl" yaml:"token_ttl"`
	RedisURL         string            `json:"redis_url" yaml:"redis_url"`
	PartnerRateLimit float64           `json:"partner_rate_limit" yaml:"partner_rate_limit"`
	PartnerRateBurst int               `json:"partner_rate_burst" yaml:"partner_rate_burst"`
	Credentials      model.Credentials `json:"credentials" yaml:"credentials"`
	Store            StoreConfig       `json:"store" yaml:"store"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
func Load(ctx context.Context) (*Config, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:           envOrDefault("PORT", "8080"),
		Environment:    envOrDefault("ENVIRONMENT", "development"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		RouteNamespace: envOrDefault("ROUTE_NAMESPACE", "orderbridge"),
		GCPProject:     os.Getenv("GCP_PROJECT"),
		SecretID:       envOrDefault("SECRET_ID", "orderbridge"),
		Storefront:     envOrDefault("STOREFRONT", StorefrontWooCommerce),
		RedisURL:       os.Getenv("REDIS_URL"),
	}

	var err error
	if cfg.TokenTTL, err = parseTTL(os.Getenv("TOKEN_TTL")); err != nil {
		return nil, err
	}
	if v := os.Getenv("PARTNER_RATE_LIMIT"); v != "" {
		if cfg.PartnerRateLimit, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("parsing PARTNER_RATE_LIMIT: %w", err)
		}
	}
	if v := os.Getenv("PARTNER_RATE_BURST"); v != "" {
		if cfg.PartnerRateBurst, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("parsing PARTNER_RATE_BURST: %w", err)
		}
	}

	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading secrets: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads all configuration from a JSON or YAML file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	ttl, err := parseTTL(fc.TokenTTL)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:             withDefault(fc.Port, "8080"),
		Environment:      withDefault(fc.Environment, "development"),
		LogLevel:         withDefault(fc.LogLevel, "info"),
		RouteNamespace:   withDefault(fc.RouteNamespace, "orderbridge"),
		Storefront:       withDefault(fc.Storefront, StorefrontWooCommerce),
		TokenTTL:         ttl,
		RedisURL:         fc.RedisURL,
		PartnerRateLimit: fc.PartnerRateLimit,
		PartnerRateBurst: fc.PartnerRateBurst,
		Credentials:      fc.Credentials,
		Store:            fc.Store,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// parseTTL accepts a Go duration ("10m") or a number of seconds; empty means token.DefaultTTL.
func parseTTL(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return token.DefaultTTL, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		v = strconv.Itoa(secs) + "s"
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing TOKEN_TTL: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("TOKEN_TTL must be positive, got %s", d)
	}
	return d, nil
}

// loadFromSecretManager fetches credentials and store settings from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.GCPProject, c.SecretID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	return c.applySecret(result.Payload.Data)
}

// applySecret decodes a Secret Manager payload into c.
func (c *Config) applySecret(data []byte) error {
	var payload secretPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	c.Credentials = payload.Credentials
	c.Store = payload.Store
	return nil
}

// loadFromEnv reads credentials and store settings from individual environment variables.
func (c *Config) loadFromEnv() {
	c.Credentials = model.Credentials{
		IntegrationID:   os.Getenv("INTEGRATION_ID"),
		PublicKey:       os.Getenv("INTEGRATION_PUBLIC_KEY"),
		SecretKey:       os.Getenv("INTEGRATION_SECRET_KEY"),
		GraphQLEndpoint: os.Getenv("PARTNER_GRAPHQL_ENDPOINT"),
		LocalEndpoint:   os.Getenv("LOCAL_ENDPOINT"),
	}
	c.Store = StoreConfig{
		StoreURL:      os.Getenv("WOO_STORE_URL"),
		APIKey:        os.Getenv("WOO_API_KEY"),
		APISecret:     os.Getenv("WOO_API_SECRET"),
		BatchStrategy: os.Getenv("WOO_BATCH_STRATEGY"),
		Fingerprint:   os.Getenv("WOO_FINGERPRINT") == "true",
	}
}

// validate checks the settings the service cannot start without.
// Integration credentials are not required here.
func (c *Config) validate() error {
	if strings.ContainsAny(c.RouteNamespace, "/ ") {
		return fmt.Errorf("route_namespace must be a single path segment, got %q", c.RouteNamespace)
	}
	if c.PartnerRateLimit < 0 || c.PartnerRateBurst < 0 {
		return fmt.Errorf("partner rate limit and burst must not be negative")
	}

	switch c.Storefront {
	case StorefrontMemory:
		return nil
	case StorefrontWooCommerce:
	default:
		return fmt.Errorf("storefront must be %q or %q, got %q", StorefrontWooCommerce, StorefrontMemory, c.Storefront)
	}

	if c.Store.StoreURL == "" {
		return fmt.Errorf("store_url is required")
	}
	if c.Store.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.Store.APISecret == "" {
		return fmt.Errorf("api_secret is required")
	}
	if u, err := url.Parse(c.Store.StoreURL); err != nil || u.Host == "" {
		return fmt.Errorf("invalid store_url %q", c.Store.StoreURL)
	}
	switch c.Store.BatchStrategy {
	case "", "multi", "sequential":
	default:
		return fmt.Errorf("batch_strategy must be multi or sequential, got %q", c.Store.BatchStrategy)
	}
	return nil
}

// DirectivePath is the inbound directive route for this integration.
func (c *Config) DirectivePath() string {
	return "/" + c.RouteNamespace + "/{integrationId}"
}

// CreateTokenPath is the token minting route.
func (c *Config) CreateTokenPath() string {
	return "/" + c.RouteNamespace + "-create/create-paseto"
}

// StoreDomain derives the store's host from its URL.
func (c *Config) StoreDomain() string {
	return extractDomain(c.Store.StoreURL)
}

// extractDomain parses the domain from a URL string.
func extractDomain(storeURL string) string {
	if storeURL == "" {
		return ""
	}
	u, err := url.Parse(storeURL)
	if err != nil || u.Host == "" {
		domain := strings.TrimPrefix(storeURL, "https://")
		domain = strings.TrimPrefix(domain, "http://")
		return strings.Split(domain, "/")[0]
	}
	return u.Host
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
