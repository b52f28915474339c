package importer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"orderbridge/internal/model"
	"orderbridge/internal/storefront"
)

func testStore() *storefront.Memory {
	m := storefront.NewMemory()
	m.AddProduct(storefront.Product{ID: "10", Name: "Mug", Type: storefront.TypeSimple, Price: 1200, InStock: true})
	m.AddProduct(storefront.Product{ID: "20", Name: "Shirt", Type: storefront.TypeVariable, InStock: true})
	m.AddVariation(storefront.Variation{ID: "21", ProductID: "20", Price: 2000, InStock: true})
	return m
}

func testOrder() ImportedOrder {
	return ImportedOrder{
		RemoteID: "R-1",
		Name:     "#1001",
		Products: []Product{
			{LineItemID: "L1", ProductID: "10", Quantity: 2, UnitPrice: 1200},
			{LineItemID: "L2", ProductID: "20", VariantID: "21", Quantity: 1, UnitPrice: 1500},
		},
		Order: Totals{
			Subtotal: 3900, Shipping: 500, Tax: 390, Total: 4790,
			Status: "paid", Currency: "USD", ShippingHandle: "flat_rate-1|500|Standard-Shipping",
		},
		Customer:    Customer{Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"},
		Billing:     model.Address{FirstName: "Ada", LastName: "Lovelace", Country: "US"},
		Shipping:    model.Address{FirstName: "Ada", LastName: "Lovelace", Country: "US"},
		Transaction: Transaction{ID: "txn_1", Name: "Card"},
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	store := testStore()
	imp := New(store, nil)

	res, err := imp.Import(ctx, testOrder(), "R-1")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Exists || res.OrderID == "" || res.OrderKey == "" {
		t.Fatalf("result = %+v", res)
	}

	orders := store.Orders()
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	o := orders[0]

	if o.Metadata[storefront.MetaRemoteOrder] != "true" || o.Metadata[storefront.MetaRemoteOrderNumber] != "R-1" {
		t.Errorf("metadata = %v", o.Metadata)
	}
	if o.ShippingTotal != "5.00" || o.TaxTotal != "3.90" || o.Total != "47.90" {
		t.Errorf("totals = %s/%s/%s", o.ShippingTotal, o.TaxTotal, o.Total)
	}
	if o.Status != "processing" || o.PaymentMethod != PaymentMethod || o.TransactionID != "txn_1" {
		t.Errorf("status/payment = %s/%s/%s", o.Status, o.PaymentMethod, o.TransactionID)
	}
	if o.CustomerID == "" {
		t.Error("CustomerID empty")
	}

	if len(o.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(o.Lines))
	}
	if o.Lines[0].Name != "Mug" || o.Lines[0].Subtotal != "24.00" || o.Lines[0].Total != "24.00" {
		t.Errorf("line[0] = %+v", o.Lines[0])
	}
	if o.Lines[1].Subtotal != "20.00" || o.Lines[1].Total != "15.00" {
		t.Errorf("line[1] = %+v", o.Lines[1])
	}

	if len(o.CouponCodes) != 1 || o.CouponCodes[0] != "markdown-r-1-l2" {
		t.Errorf("coupons = %v", o.CouponCodes)
	}
	coupons := store.Coupons()
	if len(coupons) != 1 || coupons[0].Amount != "5.00" || coupons[0].ProductIDs[0] != "21" || coupons[0].UsageLimit != 1 {
		t.Errorf("coupon = %+v", coupons)
	}

	if len(o.ShippingLines) != 1 {
		t.Fatalf("shipping lines = %d", len(o.ShippingLines))
	}
	sl := o.ShippingLines[0]
	if sl.MethodID != "flat_rate" || sl.InstanceID != "1" || sl.MethodTitle != "Standard Shipping" || sl.Total != "5.00" {
		t.Errorf("shipping line = %+v", sl)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := testStore()
	imp := New(store, nil)

	if _, err := imp.Import(ctx, testOrder(), "R-1"); err != nil {
		t.Fatalf("first Import() error = %v", err)
	}
	res, err := imp.Import(ctx, testOrder(), "R-1")
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}
	if !res.Exists {
		t.Error("second Import() Exists = false")
	}
	if got := len(store.Orders()); got != 1 {
		t.Errorf("orders = %d, want 1", got)
	}
}

// failOnceStore fails the first CreateOrder after coupons were written.
type failOnceStore struct {
	*storefront.Memory
	failed bool
}

func (s *failOnceStore) CreateOrder(ctx context.Context, p *storefront.OrderParams) (*storefront.Order, error) {
	if !s.failed {
		s.failed = true
		return nil, errors.New("storefront unavailable")
	}
	return s.Memory.CreateOrder(ctx, p)
}

func TestImportRetryAfterFailedCreate(t *testing.T) {
	ctx := context.Background()
	store := &failOnceStore{Memory: testStore()}
	imp := New(store, nil)

	if _, err := imp.Import(ctx, testOrder(), "R-1"); err == nil {
		t.Fatal("first Import() error = nil, want failure")
	}
	if got := len(store.Coupons()); got != 1 {
		t.Fatalf("coupons after failed import = %d, want 1", got)
	}

	res, err := imp.Import(ctx, testOrder(), "R-1")
	if err != nil {
		t.Fatalf("retried Import() error = %v", err)
	}
	if res.Exists || res.OrderID == "" {
		t.Errorf("result = %+v", res)
	}
	if len(res.Coupons) != 1 || res.Coupons[0] != "markdown-r-1-l2" {
		t.Errorf("coupons = %v, want [markdown-r-1-l2]", res.Coupons)
	}
	if got := len(store.Coupons()); got != 1 {
		t.Errorf("coupons after retry = %d, want 1", got)
	}
	if got := len(store.Orders()); got != 1 {
		t.Errorf("orders = %d, want 1", got)
	}
}

func TestImportLeftoverCouponWithOtherAmount(t *testing.T) {
	ctx := context.Background()
	store := testStore()
	if _, err := store.CreateCoupon(ctx, storefront.Coupon{Code: "markdown-r-1-l2", Amount: "1.00"}); err != nil {
		t.Fatalf("CreateCoupon() error = %v", err)
	}

	res, err := New(store, nil).Import(ctx, testOrder(), "R-1")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(res.Coupons) != 1 || res.Coupons[0] != "markdown-r-1-l2-500" {
		t.Errorf("coupons = %v, want [markdown-r-1-l2-500]", res.Coupons)
	}
	c, err := store.CouponByCode(ctx, "markdown-r-1-l2-500")
	if err != nil || c.Amount != "5.00" {
		t.Errorf("CouponByCode() = %+v, %v", c, err)
	}
}

func TestImportLogsPriceDrift(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store := testStore()
	order := testOrder()
	order.Products[0].UnitPrice = 1500 // local price is 1200

	if _, err := New(store, logger).Import(context.Background(), order, "R-3"); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "partner price above local price") || !strings.Contains(out, "line_item_id=L1") {
		t.Errorf("log missing markup line:\n%s", out)
	}
	if !strings.Contains(out, "markups=1") || !strings.Contains(out, "markdown_total=500") {
		t.Errorf("log missing drift summary:\n%s", out)
	}
}

func TestImportMissingProduct(t *testing.T) {
	ctx := context.Background()
	store := testStore()
	order := testOrder()
	order.Products = []Product{{LineItemID: "L9", ProductID: "404", Title: "Retired", Quantity: 1, UnitPrice: 700}}

	if _, err := New(store, nil).Import(ctx, order, "R-9"); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	line := store.Orders()[0].Lines[0]
	if line.ProductID != "" || line.Name != "Retired" || line.Total != "7.00" {
		t.Errorf("line = %+v", line)
	}
}

func TestImportValidation(t *testing.T) {
	ctx := context.Background()
	imp := New(testStore(), nil)

	if _, err := imp.Import(ctx, testOrder(), " "); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("Import(blank ref) error = %v, want ErrInvalidRequest", err)
	}
	empty := testOrder()
	empty.Products = nil
	if _, err := imp.Import(ctx, empty, "R-2"); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("Import(no products) error = %v, want ErrInvalidRequest", err)
	}
}

func TestImportPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		store *storefront.Mock
	}{
		{"exists check", &storefront.Mock{
			OrderExistsByExternalRefFunc: func(ctx context.Context, ref string) (bool, error) { return false, boom },
		}},
		{"customer", &storefront.Mock{
			FindOrCreateCustomerFunc: func(ctx context.Context, c storefront.Customer) (*storefront.Customer, error) { return nil, boom },
		}},
		{"product lookup", &storefront.Mock{
			ProductFunc: func(ctx context.Context, id string) (*storefront.Product, error) { return nil, boom },
		}},
		{"coupon lookup", &storefront.Mock{
			ProductFunc: func(ctx context.Context, id string) (*storefront.Product, error) {
				return &storefront.Product{ID: id, Price: 2000}, nil
			},
			CouponByCodeFunc: func(ctx context.Context, code string) (*storefront.Coupon, error) { return nil, boom },
		}},
		{"create order", &storefront.Mock{
			ProductFunc: func(ctx context.Context, id string) (*storefront.Product, error) {
				return &storefront.Product{ID: id, Price: 1200}, nil
			},
			CreateOrderFunc: func(ctx context.Context, p *storefront.OrderParams) (*storefront.Order, error) { return nil, boom },
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.store, nil).Import(context.Background(), testOrder(), "R-1"); !errors.Is(err, boom) {
				t.Errorf("Import() error = %v, want boom", err)
			}
		})
	}
}

func TestShippingLines(t *testing.T) {
	imp := New(storefront.NewMemory(), nil)

	tests := []struct {
		name   string
		totals Totals
		want   []storefront.ShippingLine
	}{
		{"no shipping", Totals{}, nil},
		{"total without handle", Totals{Shipping: 799}, []storefront.ShippingLine{{MethodID: "other", MethodTitle: "Shipping", Total: "7.99"}}},
		{"bad handle", Totals{Shipping: 500, ShippingHandle: "nonsense"}, []storefront.ShippingLine{{MethodID: "other", MethodTitle: "Shipping", Total: "5.00"}}},
		{"handle amount when total missing", Totals{ShippingHandle: "free_shipping-2|0|Free"}, []storefront.ShippingLine{{MethodID: "free_shipping", InstanceID: "2", MethodTitle: "Free", Total: "0.00"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := imp.shippingLines(tt.totals)
			if len(got) != len(tt.want) {
				t.Fatalf("shippingLines() = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNativeStatus(t *testing.T) {
	tests := map[string]string{
		"paid":      "processing",
		"":          "processing",
		"PENDING":   "pending",
		"canceled":  "cancelled",
		"refunded":  "refunded",
		"fulfilled": "completed",
		"on_hold":   "on-hold",
	}
	for in, want := range tests {
		if got := nativeStatus(in); got != want {
			t.Errorf("nativeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
