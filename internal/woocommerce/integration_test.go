//go:build integration
// +build integration

// Integration tests for the WooCommerce binding.
// Run with: go test -tags=integration ./internal/woocommerce/... -v
//
// Required environment variables:
//
//	WOO_STORE_URL   - WooCommerce store URL (e.g., https://shop.example.com)
//	WOO_API_KEY     - REST API consumer key
//	WOO_API_SECRET  - REST API consumer secret
//	WOO_PRODUCT_ID  - In-stock simple product to quote with
package woocommerce

import (
	"context"
	"os"
	"testing"
	"time"

	"orderbridge/internal/model"
	"orderbridge/internal/storefront"
)

type testConfig struct {
	StoreURL  string
	APIKey    string
	APISecret string
	ProductID string
}

func loadTestConfig(t *testing.T) *testConfig {
	t.Helper()

	cfg := &testConfig{
		StoreURL:  os.Getenv("WOO_STORE_URL"),
		APIKey:    os.Getenv("WOO_API_KEY"),
		APISecret: os.Getenv("WOO_API_SECRET"),
		ProductID: os.Getenv("WOO_PRODUCT_ID"),
	}
	if cfg.StoreURL == "" || cfg.APIKey == "" || cfg.APISecret == "" || cfg.ProductID == "" {
		t.Skip("Skipping integration test: WOO_* env vars not set")
	}
	return cfg
}

func newLiveClient(t *testing.T, cfg *testConfig, strategy BatchStrategy) *Client {
	t.Helper()
	c, err := New(Config{
		StoreURL:      cfg.StoreURL,
		APIKey:        cfg.APIKey,
		APISecret:     cfg.APISecret,
		BatchStrategy: strategy,
		Fingerprint:   true,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

func TestIntegration_Product(t *testing.T) {
	cfg := loadTestConfig(t)
	c := newLiveClient(t, cfg, BatchStrategyMulti)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := c.Product(ctx, cfg.ProductID)
	if err != nil {
		t.Fatalf("Product() error = %v", err)
	}
	t.Logf("product %s %q type=%s price=%d in_stock=%v", p.ID, p.Name, p.Type, p.Price, p.InStock)

	if p.Permalink != "" {
		byURL, err := c.ProductByURL(ctx, p.Permalink)
		if err != nil {
			t.Fatalf("ProductByURL(%s) error = %v", p.Permalink, err)
		}
		if byURL.ID != p.ID {
			t.Errorf("ProductByURL resolved %s, want %s", byURL.ID, p.ID)
		}
	}
}

func TestIntegration_ScratchCartQuote(t *testing.T) {
	cfg := loadTestConfig(t)

	for _, strategy := range []BatchStrategy{BatchStrategyMulti, BatchStrategySequential} {
		t.Run(string(strategy), func(t *testing.T) {
			c := newLiveClient(t, cfg, strategy)

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			cart, err := c.NewScratchCart(ctx)
			if err != nil {
				t.Fatal(err)
			}
			defer func() {
				if err := cart.Empty(context.Background()); err != nil {
					t.Errorf("Empty() error = %v", err)
				}
			}()

			if err := cart.AddItem(ctx, storefront.CartItem{ProductID: cfg.ProductID, Quantity: 1}); err != nil {
				t.Fatalf("AddItem() error = %v", err)
			}
			addr := model.Address{
				FirstName: "Test", LastName: "Buyer", Address1: "1600 Amphitheatre Pkwy",
				City: "Mountain View", State: "CA", Postcode: "94043", Country: "US",
			}
			if err := cart.SetShippingAddress(ctx, addr); err != nil {
				t.Fatal(err)
			}
			if err := cart.CalculateShipping(ctx); err != nil {
				t.Fatalf("CalculateShipping() error = %v", err)
			}

			rates, _ := cart.ShippingOptions(ctx)
			taxes, _ := cart.Taxes(ctx)
			t.Logf("rates=%+v taxes=%+v", rates, taxes)
		})
	}
}
