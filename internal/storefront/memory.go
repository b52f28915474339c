package storefront

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"orderbridge/internal/model"
)

// Memory is an in-process storefront for local development and tests.
// Shipping is a fixed rate table; tax is a flat rate on the item subtotal.
type Memory struct {
	mu         sync.Mutex
	products   map[string]*Product
	variations map[string]*Variation
	customers  map[string]*Customer
	coupons    map[string]*Coupon
	orders     []memoryOrder
	carts      map[*memoryCart]struct{}
	nextID     int

	rates   []ShippingRate
	taxRate int64 // basis points
}

type memoryOrder struct {
	order  Order
	params OrderParams
}

// MemoryOption configures a Memory storefront.
type MemoryOption func(*Memory)

// WithShippingRates sets the rates offered for any cart with a shipping country.
func WithShippingRates(rates ...ShippingRate) MemoryOption {
	return func(m *Memory) { m.rates = rates }
}

// WithTaxRate sets the flat tax rate in basis points (825 = 8.25%).
func WithTaxRate(basisPoints int64) MemoryOption {
	return func(m *Memory) { m.taxRate = basisPoints }
}

// NewMemory creates an empty in-memory storefront.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		products:   make(map[string]*Product),
		variations: make(map[string]*Variation),
		customers:  make(map[string]*Customer),
		coupons:    make(map[string]*Coupon),
		carts:      make(map[*memoryCart]struct{}),
		nextID:     1000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddProduct seeds the catalog.
func (m *Memory) AddProduct(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = &p
}

// AddVariation seeds a variation and links it to its parent.
func (m *Memory) AddVariation(v Variation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variations[v.ID] = &v
	if parent, ok := m.products[v.ProductID]; ok {
		parent.VariationIDs = append(parent.VariationIDs, v.ID)
	}
}

// Orders returns the parameters of every created order, oldest first.
func (m *Memory) Orders() []OrderParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderParams, len(m.orders))
	for i, o := range m.orders {
		out[i] = o.params
	}
	return out
}

// Coupons returns every created coupon.
func (m *Memory) Coupons() []Coupon {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Coupon, 0, len(m.coupons))
	for _, c := range m.coupons {
		out = append(out, *c)
	}
	return out
}

// OpenCarts counts scratch carts that were opened and not yet emptied.
func (m *Memory) OpenCarts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.carts)
}

func (m *Memory) NewScratchCart(_ context.Context) (ScratchCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &memoryCart{store: m}
	m.carts[c] = struct{}{}
	return c, nil
}

func (m *Memory) IsInStock(_ context.Context, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.variations[productID]; ok {
		return v.InStock, nil
	}
	if p, ok := m.products[productID]; ok {
		return p.InStock, nil
	}
	return false, model.NewNotFoundError("product")
}

func (m *Memory) Product(_ context.Context, id string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	if v, ok := m.variations[id]; ok {
		return m.variationAsProduct(v), nil
	}
	return nil, model.NewNotFoundError("product")
}

func (m *Memory) ProductByURL(_ context.Context, rawURL string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	for _, p := range m.products {
		if p.Permalink != "" && strings.TrimRight(p.Permalink, "/") == want {
			cp := *p
			return &cp, nil
		}
	}

	// ?p=<id> and ?product_id=<id> links resolve by id.
	if u, err := url.Parse(want); err == nil {
		for _, key := range []string{"p", "product_id"} {
			if p, ok := m.products[u.Query().Get(key)]; ok {
				cp := *p
				return &cp, nil
			}
		}
	}
	return nil, model.NewNotFoundError("product")
}

func (m *Memory) Variations(_ context.Context, productID string) ([]Variation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, model.NewNotFoundError("product")
	}
	out := make([]Variation, 0, len(p.VariationIDs))
	for _, id := range p.VariationIDs {
		if v, ok := m.variations[id]; ok {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *Memory) OrderExistsByExternalRef(_ context.Context, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.params.Metadata[MetaRemoteOrderNumber] == ref {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) CreateOrder(_ context.Context, params *OrderParams) (*Order, error) {
	if params == nil || len(params.Lines) == 0 {
		return nil, model.NewValidationError("order", "no line items")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	order := Order{
		ID:  m.newID(),
		Key: "wc_order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:13],
	}
	m.orders = append(m.orders, memoryOrder{order: order, params: *params})
	return &order, nil
}

func (m *Memory) FindOrCreateCustomer(_ context.Context, c Customer) (*Customer, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if email == "" {
		return nil, model.NewValidationError("customer", "email is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.customers[email]; ok {
		cp := *existing
		return &cp, nil
	}
	c.ID = m.newID()
	c.Email = email
	m.customers[email] = &c
	cp := c
	return &cp, nil
}

func (m *Memory) CouponByCode(_ context.Context, code string) (*Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.coupons[strings.ToLower(strings.TrimSpace(code))]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, model.NewNotFoundError("coupon")
}

func (m *Memory) CreateCoupon(_ context.Context, c Coupon) (*Coupon, error) {
	code := strings.ToLower(strings.TrimSpace(c.Code))
	if code == "" {
		return nil, model.NewValidationError("coupon", "code is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.coupons[code]; ok {
		return nil, model.NewValidationError("coupon", fmt.Sprintf("%s already exists", code))
	}
	c.ID = m.newID()
	c.Code = code
	m.coupons[code] = &c
	cp := c
	return &cp, nil
}

// newID must be called with mu held.
func (m *Memory) newID() string {
	m.nextID++
	return strconv.Itoa(m.nextID)
}

func (m *Memory) variationAsProduct(v *Variation) *Product {
	p := &Product{
		ID:           v.ID,
		ParentID:     v.ProductID,
		Type:         TypeVariation,
		Status:       StatusPublished,
		SKU:          v.SKU,
		Price:        v.Price,
		RegularPrice: v.RegularPrice,
		InStock:      v.InStock,
	}
	if parent, ok := m.products[v.ProductID]; ok {
		p.Name = parent.Name
		p.Status = parent.Status
	}
	if v.Image != "" {
		p.Images = []string{v.Image}
	}
	return p
}

// price returns the unit price of a product or variation. mu must be held.
func (m *Memory) price(id string) (int64, bool, bool) {
	if v, ok := m.variations[id]; ok {
		return v.Price, v.InStock, true
	}
	if p, ok := m.products[id]; ok {
		return p.Price, p.InStock, true
	}
	return 0, false, false
}

type memoryCart struct {
	store   *Memory
	items   []CartItem
	address model.Address
	rates   []ShippingRate
	taxes   []TaxLine
}

func (c *memoryCart) AddItem(_ context.Context, item CartItem) error {
	if item.Quantity <= 0 {
		return model.NewValidationError("quantity", "must be positive")
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	_, inStock, ok := c.store.price(item.PurchasableID())
	if !ok {
		return model.NewNotFoundError("product")
	}
	if !inStock {
		return model.NewValidationError("product", fmt.Sprintf("%s is out of stock", item.PurchasableID()))
	}
	c.items = append(c.items, item)
	return nil
}

func (c *memoryCart) SetShippingAddress(_ context.Context, addr model.Address) error {
	c.address = addr
	return nil
}

func (c *memoryCart) CalculateShipping(_ context.Context) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.rates = nil
	if c.address.Country == "" || len(c.items) == 0 {
		return nil
	}
	c.rates = append(c.rates, c.store.rates...)
	return nil
}

func (c *memoryCart) CalculateTotals(_ context.Context) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	var subtotal int64
	for _, item := range c.items {
		price, _, _ := c.store.price(item.PurchasableID())
		subtotal += price * int64(item.Quantity)
	}
	c.taxes = nil
	if c.store.taxRate > 0 && subtotal > 0 {
		c.taxes = []TaxLine{{Label: "Tax", Amount: subtotal * c.store.taxRate / 10000}}
	}
	return nil
}

func (c *memoryCart) ShippingOptions(_ context.Context) ([]ShippingRate, error) {
	return c.rates, nil
}

func (c *memoryCart) Taxes(_ context.Context) ([]TaxLine, error) {
	return c.taxes, nil
}

func (c *memoryCart) Empty(_ context.Context) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.items = nil
	c.rates = nil
	c.taxes = nil
	c.address = model.Address{}
	delete(c.store.carts, c)
	return nil
}

var _ Storefront = (*Memory)(nil)
