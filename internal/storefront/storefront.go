// Package storefront defines the storefront operations the bridge depends on.
// The storefront owns catalog, cart, shipping, tax and order persistence; the
// bridge only drives it through these interfaces.
package storefront

import (
	"context"

	"orderbridge/internal/model"
)

// Storefront abstracts catalog, customer, coupon and order operations.
// Each platform (WooCommerce, in-memory) provides its own implementation.
type Storefront interface {
	// NewScratchCart opens an empty cart session used only for pricing.
	// Callers must Empty it when done.
	NewScratchCart(ctx context.Context) (ScratchCart, error)

	// IsInStock reports whether a product or variation can be purchased.
	IsInStock(ctx context.Context, productID string) (bool, error)

	// Product returns a product or variation by id.
	// Returns model.ErrNotFound when the id does not resolve.
	Product(ctx context.Context, id string) (*Product, error)

	// ProductByURL resolves a storefront product page URL to its product.
	ProductByURL(ctx context.Context, url string) (*Product, error)

	// Variations lists the variations of a variable product.
	Variations(ctx context.Context, productID string) ([]Variation, error)

	// OrderExistsByExternalRef reports whether an order carrying the given
	// remote order number was already imported.
	OrderExistsByExternalRef(ctx context.Context, ref string) (bool, error)

	// CreateOrder persists a native order.
	CreateOrder(ctx context.Context, params *OrderParams) (*Order, error)

	// FindOrCreateCustomer looks a customer up by email and creates one if absent.
	FindOrCreateCustomer(ctx context.Context, c Customer) (*Customer, error)

	// CouponByCode returns the coupon with the given code.
	// Returns model.ErrNotFound when no such coupon exists.
	CouponByCode(ctx context.Context, code string) (*Coupon, error)

	// CreateCoupon creates a single-use coupon.
	CreateCoupon(ctx context.Context, c Coupon) (*Coupon, error)
}

// ScratchCart is a throwaway cart used to run the storefront's own shipping
// and tax calculation. It is never checked out.
type ScratchCart interface {
	AddItem(ctx context.Context, item CartItem) error
	SetShippingAddress(ctx context.Context, addr model.Address) error
	CalculateShipping(ctx context.Context) error
	CalculateTotals(ctx context.Context) error
	ShippingOptions(ctx context.Context) ([]ShippingRate, error)
	Taxes(ctx context.Context) ([]TaxLine, error)
	Empty(ctx context.Context) error
}

// CartItem is a line added to a scratch cart. VariantID wins over ProductID when set.
type CartItem struct {
	ProductID string
	VariantID string
	Quantity  int
}

// PurchasableID returns the id the storefront should add to the cart.
func (i CartItem) PurchasableID() string {
	if i.VariantID != "" {
		return i.VariantID
	}
	return i.ProductID
}

// ShippingRate is one calculated shipping option. Amount is in minor units.
type ShippingRate struct {
	MethodID   string
	InstanceID string
	Label      string
	Amount     int64
}

// TaxLine is one calculated tax amount in minor units.
type TaxLine struct {
	Label  string
	Amount int64
}

// Product types accepted for import.
const (
	TypeSimple    = "simple"
	TypeVariable  = "variable"
	TypeVariation = "variation"
)

// StatusPublished is the catalog status of a live product.
const StatusPublished = "publish"

// Product is the catalog view the bridge needs. Prices are in minor units.
type Product struct {
	ID           string
	ParentID     string
	Name         string
	Description  string
	Type         string
	Status       string
	Downloadable bool
	SKU          string
	Permalink    string
	Price        int64
	RegularPrice int64
	InStock      bool
	Images       []string
	Attributes   []Attribute
	VariationIDs []string
}

// CompareAtPrice returns the regular price when the product is on sale, else 0.
func (p *Product) CompareAtPrice() int64 {
	if p.RegularPrice > p.Price {
		return p.RegularPrice
	}
	return 0
}

// Attribute is a variation axis and its values.
type Attribute struct {
	Name    string
	Options []string
}

// Variation is one purchasable combination of a variable product.
type Variation struct {
	ID           string
	ProductID    string
	SKU          string
	Price        int64
	RegularPrice int64
	InStock      bool
	Image        string
	Options      []SelectedOption
}

// SelectedOption is the value a variation takes on one attribute.
type SelectedOption struct {
	Name  string
	Value string
}

// Customer is a storefront account.
type Customer struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// Coupon is a fixed-amount discount. Amount is a decimal string.
type Coupon struct {
	ID          string
	Code        string
	Amount      string
	Description string
	ProductIDs  []string
	UsageLimit  int
}

// OrderLine is a native order line. Totals are decimal strings.
type OrderLine struct {
	ProductID string
	VariantID string
	Name      string
	Quantity  int
	Subtotal  string
	Total     string
}

// ShippingLine is the chosen shipping method on a native order.
type ShippingLine struct {
	MethodID    string
	InstanceID  string
	MethodTitle string
	Total       string
}

// OrderParams carries everything needed to create a native order.
// All amounts are already converted from minor units to decimal strings.
type OrderParams struct {
	CustomerID    string
	Status        string
	Currency      string
	Billing       model.Address
	Shipping      model.Address
	Lines         []OrderLine
	ShippingLines []ShippingLine
	CouponCodes   []string
	ShippingTotal string
	TaxTotal      string
	Total         string
	PaymentMethod string
	PaymentTitle  string
	TransactionID string
	Metadata      map[string]string
}

// Order is the persisted native order.
type Order struct {
	ID  string
	Key string
}

// Order metadata keys written on imported orders.
const (
	MetaRemoteOrder       = "is_remote_order"
	MetaRemoteOrderNumber = "remote_order_number"
)
