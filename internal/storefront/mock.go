package storefront

import (
	"context"

	"orderbridge/internal/model"
)

// Mock implements Storefront for testing.
// Each method can be configured via function fields.
type Mock struct {
	NewScratchCartFunc           func(ctx context.Context) (ScratchCart, error)
	IsInStockFunc                func(ctx context.Context, productID string) (bool, error)
	ProductFunc                  func(ctx context.Context, id string) (*Product, error)
	ProductByURLFunc             func(ctx context.Context, url string) (*Product, error)
	VariationsFunc               func(ctx context.Context, productID string) ([]Variation, error)
	OrderExistsByExternalRefFunc func(ctx context.Context, ref string) (bool, error)
	CreateOrderFunc              func(ctx context.Context, params *OrderParams) (*Order, error)
	FindOrCreateCustomerFunc     func(ctx context.Context, c Customer) (*Customer, error)
	CouponByCodeFunc             func(ctx context.Context, code string) (*Coupon, error)
	CreateCouponFunc             func(ctx context.Context, c Coupon) (*Coupon, error)
}

// NewScratchCart calls the configured NewScratchCartFunc or returns a fresh MockCart.
func (m *Mock) NewScratchCart(ctx context.Context) (ScratchCart, error) {
	if m.NewScratchCartFunc != nil {
		return m.NewScratchCartFunc(ctx)
	}
	return &MockCart{}, nil
}

// IsInStock calls the configured IsInStockFunc or reports in stock.
func (m *Mock) IsInStock(ctx context.Context, productID string) (bool, error) {
	if m.IsInStockFunc != nil {
		return m.IsInStockFunc(ctx, productID)
	}
	return true, nil
}

// Product calls the configured ProductFunc or returns not found.
func (m *Mock) Product(ctx context.Context, id string) (*Product, error) {
	if m.ProductFunc != nil {
		return m.ProductFunc(ctx, id)
	}
	return nil, model.NewNotFoundError("product")
}

// ProductByURL calls the configured ProductByURLFunc or returns not found.
func (m *Mock) ProductByURL(ctx context.Context, url string) (*Product, error) {
	if m.ProductByURLFunc != nil {
		return m.ProductByURLFunc(ctx, url)
	}
	return nil, model.NewNotFoundError("product")
}

// Variations calls the configured VariationsFunc or returns none.
func (m *Mock) Variations(ctx context.Context, productID string) ([]Variation, error) {
	if m.VariationsFunc != nil {
		return m.VariationsFunc(ctx, productID)
	}
	return nil, nil
}

// OrderExistsByExternalRef calls the configured func or reports absent.
func (m *Mock) OrderExistsByExternalRef(ctx context.Context, ref string) (bool, error) {
	if m.OrderExistsByExternalRefFunc != nil {
		return m.OrderExistsByExternalRefFunc(ctx, ref)
	}
	return false, nil
}

// CreateOrder calls the configured CreateOrderFunc or returns an error.
func (m *Mock) CreateOrder(ctx context.Context, params *OrderParams) (*Order, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, params)
	}
	return nil, model.NewInternalError(nil)
}

// FindOrCreateCustomer calls the configured func or echoes the customer back.
func (m *Mock) FindOrCreateCustomer(ctx context.Context, c Customer) (*Customer, error) {
	if m.FindOrCreateCustomerFunc != nil {
		return m.FindOrCreateCustomerFunc(ctx, c)
	}
	return &c, nil
}

// CouponByCode calls the configured CouponByCodeFunc or returns not found.
func (m *Mock) CouponByCode(ctx context.Context, code string) (*Coupon, error) {
	if m.CouponByCodeFunc != nil {
		return m.CouponByCodeFunc(ctx, code)
	}
	return nil, model.NewNotFoundError("coupon")
}

// CreateCoupon calls the configured CreateCouponFunc or echoes the coupon back.
func (m *Mock) CreateCoupon(ctx context.Context, c Coupon) (*Coupon, error) {
	if m.CreateCouponFunc != nil {
		return m.CreateCouponFunc(ctx, c)
	}
	return &c, nil
}

// MockCart implements ScratchCart for testing. It records what was done to it.
type MockCart struct {
	AddItemFunc            func(ctx context.Context, item CartItem) error
	SetShippingAddressFunc func(ctx context.Context, addr model.Address) error
	ShippingOptionsFunc    func(ctx context.Context) ([]ShippingRate, error)
	TaxesFunc              func(ctx context.Context) ([]TaxLine, error)

	Items    []CartItem
	Address  model.Address
	Emptied  bool
	Shipping bool
	Totals   bool
}

func (c *MockCart) AddItem(ctx context.Context, item CartItem) error {
	if c.AddItemFunc != nil {
		if err := c.AddItemFunc(ctx, item); err != nil {
			return err
		}
	}
	c.Items = append(c.Items, item)
	c.Emptied = false
	return nil
}

func (c *MockCart) SetShippingAddress(ctx context.Context, addr model.Address) error {
	if c.SetShippingAddressFunc != nil {
		if err := c.SetShippingAddressFunc(ctx, addr); err != nil {
			return err
		}
	}
	c.Address = addr
	return nil
}

func (c *MockCart) CalculateShipping(_ context.Context) error {
	c.Shipping = true
	return nil
}

func (c *MockCart) CalculateTotals(_ context.Context) error {
	c.Totals = true
	return nil
}

func (c *MockCart) ShippingOptions(ctx context.Context) ([]ShippingRate, error) {
	if c.ShippingOptionsFunc != nil {
		return c.ShippingOptionsFunc(ctx)
	}
	return nil, nil
}

func (c *MockCart) Taxes(ctx context.Context) ([]TaxLine, error) {
	if c.TaxesFunc != nil {
		return c.TaxesFunc(ctx)
	}
	return nil, nil
}

func (c *MockCart) Empty(_ context.Context) error {
	c.Items = nil
	c.Emptied = true
	return nil
}

// Verify mocks implement the interfaces at compile time.
var (
	_ Storefront  = (*Mock)(nil)
	_ ScratchCart = (*MockCart)(nil)
)
