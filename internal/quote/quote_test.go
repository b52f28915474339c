package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"orderbridge/internal/model"
	"orderbridge/internal/remote"
	"orderbridge/internal/storefront"
	"orderbridge/internal/taxcache"
)

func testStore() *storefront.Memory {
	m := storefront.NewMemory(
		storefront.WithShippingRates(
			storefront.ShippingRate{MethodID: "flat_rate", InstanceID: "1", Label: "Standard Shipping", Amount: 500},
			storefront.ShippingRate{MethodID: "local-pickup", InstanceID: "3", Label: "Pickup", Amount: 0},
		),
		storefront.WithTaxRate(1000),
	)
	m.AddProduct(storefront.Product{ID: "10", Name: "Mug", Type: storefront.TypeSimple, Price: 1200, InStock: true})
	m.AddProduct(storefront.Product{ID: "30", Name: "Poster", Type: storefront.TypeSimple, Price: 900, InStock: false})
	return m
}

func remoteWithLines(items ...remote.LineItem) *remote.Mock {
	return &remote.Mock{
		LineItemsFunc: func(ctx context.Context, orderID string) (*remote.OrderLines, error) {
			return &remote.OrderLines{
				ID:        orderID,
				LineItems: items,
				ShippingAddress: &remote.Address{
					FirstName: "Ada", LastName: "Lovelace",
					Address1: "1 Main St", City: "Springfield", Province: "Illinois", ProvinceCode: "IL",
					Country: "United States", Zip: "62701",
				},
			}, nil
		},
	}
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	store := testStore()
	cache := taxcache.NewMemory(time.Minute)
	b := NewBuilder(remoteWithLines(
		remote.LineItem{ID: "L1", ProductID: "10", Quantity: 2},
		remote.LineItem{ID: "L2", ProductID: "30", Quantity: 1},
		remote.LineItem{ID: "L3", ProductID: "999", Quantity: 1},
		remote.LineItem{ID: "L4", ProductID: "10", Quantity: 0},
	), store, cache, nil)

	q, err := b.Build(ctx, "R-1")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	wantAvail := map[string]bool{"L1": true, "L2": false, "L3": false, "L4": false}
	if len(q.Lines) != len(wantAvail) {
		t.Fatalf("lines = %d, want %d", len(q.Lines), len(wantAvail))
	}
	for _, l := range q.Lines {
		if l.Available != wantAvail[l.LineItemID] {
			t.Errorf("line %s available = %v, want %v", l.LineItemID, l.Available, wantAvail[l.LineItemID])
		}
	}

	if q.ShippingAddress.Country != "US" || q.ShippingAddress.State != "IL" {
		t.Errorf("address = %+v, want US/IL", q.ShippingAddress)
	}

	if len(q.ShippingRates) != 2 {
		t.Fatalf("rates = %d, want 2", len(q.ShippingRates))
	}
	if got := q.ShippingRates[0]; got.Handle != "flat_rate-1|500|Standard-Shipping" || got.Title != "Standard Shipping" || got.Amount != 500 {
		t.Errorf("rate[0] = %+v", got)
	}
	h, err := model.ParseRateHandle(q.ShippingRates[1].Handle)
	if err != nil || h.Method != "local-pickup" || h.Instance != "3" {
		t.Errorf("rate[1] handle = %q parsed %+v, %v", q.ShippingRates[1].Handle, h, err)
	}

	if q.TaxTotal != 240 {
		t.Errorf("TaxTotal = %d, want 240", q.TaxTotal)
	}
	if cached, ok := b.CachedTax(ctx, "R-1"); !ok || cached != 240 {
		t.Errorf("CachedTax() = %d, %v, want 240, true", cached, ok)
	}

	if got := store.OpenCarts(); got != 0 {
		t.Errorf("OpenCarts() = %d, want 0", got)
	}

	avail := q.Availability()
	if len(avail) != 4 || avail[0].LineItemID != "L1" || !avail[0].Available {
		t.Errorf("Availability() = %+v", avail)
	}
}

func TestBuildRemoteFailureOpensNoCart(t *testing.T) {
	opened := 0
	store := &storefront.Mock{
		NewScratchCartFunc: func(ctx context.Context) (storefront.ScratchCart, error) {
			opened++
			return &storefront.MockCart{}, nil
		},
	}
	wantErr := &remote.GraphQLError{StatusCode: 502, Message: "bad gateway"}
	api := &remote.Mock{
		LineItemsFunc: func(ctx context.Context, orderID string) (*remote.OrderLines, error) {
			return nil, wantErr
		},
	}

	_, err := NewBuilder(api, store, nil, nil).Build(context.Background(), "R-1")
	if !errors.Is(err, wantErr) {
		t.Errorf("Build() error = %v, want %v", err, wantErr)
	}
	if opened != 0 {
		t.Errorf("scratch carts opened = %d, want 0", opened)
	}
}

func TestBuildEmptiesCartOnFailure(t *testing.T) {
	tests := []struct {
		name string
		cart *storefront.MockCart
	}{
		{"address rejected", &storefront.MockCart{
			SetShippingAddressFunc: func(ctx context.Context, addr model.Address) error { return errors.New("bad address") },
		}},
		{"shipping options fail", &storefront.MockCart{
			ShippingOptionsFunc: func(ctx context.Context) ([]storefront.ShippingRate, error) { return nil, errors.New("boom") },
		}},
		{"taxes fail", &storefront.MockCart{
			TaxesFunc: func(ctx context.Context) ([]storefront.TaxLine, error) { return nil, errors.New("boom") },
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &storefront.Mock{
				NewScratchCartFunc: func(ctx context.Context) (storefront.ScratchCart, error) { return tt.cart, nil },
			}
			api := remoteWithLines(remote.LineItem{ID: "L1", ProductID: "10", Quantity: 1})

			if _, err := NewBuilder(api, store, nil, nil).Build(context.Background(), "R-1"); err == nil {
				t.Fatal("Build() error = nil, want error")
			}
			if !tt.cart.Emptied || len(tt.cart.Items) != 0 {
				t.Errorf("cart emptied = %v, items = %d", tt.cart.Emptied, len(tt.cart.Items))
			}
		})
	}
}

func TestBuildSumsTaxLines(t *testing.T) {
	cart := &storefront.MockCart{
		TaxesFunc: func(ctx context.Context) ([]storefront.TaxLine, error) {
			return []storefront.TaxLine{{Label: "State", Amount: 600}, {Label: "City", Amount: 225}}, nil
		},
	}
	store := &storefront.Mock{
		NewScratchCartFunc: func(ctx context.Context) (storefront.ScratchCart, error) { return cart, nil },
	}
	api := remoteWithLines(remote.LineItem{ID: "L1", ProductID: "10", Quantity: 1})

	q, err := NewBuilder(api, store, nil, nil).Build(context.Background(), "R-1")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if q.TaxTotal != 825 {
		t.Errorf("TaxTotal = %d, want 825", q.TaxTotal)
	}
	if !cart.Emptied {
		t.Error("cart not emptied")
	}
}

func TestCachedTaxWithoutCache(t *testing.T) {
	b := NewBuilder(&remote.Mock{}, &storefront.Mock{}, nil, nil)
	if _, ok := b.CachedTax(context.Background(), "R-1"); ok {
		t.Error("CachedTax() without cache = hit")
	}
}

func TestShippingAddressFromFullName(t *testing.T) {
	got := shippingAddress(&remote.Address{Name: "Grace Brewster Hopper", CountryCode: "us"})
	if got.FirstName != "Grace" || got.LastName != "Brewster Hopper" || got.Country != "US" {
		t.Errorf("shippingAddress() = %+v", got)
	}
	if got := shippingAddress(nil); got != (model.Address{}) {
		t.Errorf("shippingAddress(nil) = %+v", got)
	}
}
