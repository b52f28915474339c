// Package woocommerce binds the storefront interfaces to a WooCommerce store.
// The scratch cart runs on the Store API (Cart-Token sessions, nonce-guarded
// mutations); catalog, customers, coupons and orders use REST API v3 with
// consumer key authentication.
package woocommerce

import "encoding/json"

// === Store API Types ===

// WooCartResponse represents WooCommerce Store API cart response.
// Every cart mutation returns the full cart state.
type WooCartResponse struct {
	Items                 []WooCartItem    `json:"items"`
	Totals                WooTotals        `json:"totals"`
	ShippingRates         []WooShippingPkg `json:"shipping_rates,omitempty"`
	NeedsShipping         bool             `json:"needs_shipping"`
	HasCalculatedShipping bool             `json:"has_calculated_shipping"`
	ShippingAddress       WooAddress       `json:"shipping_address"`
	Errors                []WooCartError   `json:"errors,omitempty"`
}

// WooCartError represents an error in cart state.
type WooCartError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WooCartItem represents an item in cart response.
type WooCartItem struct {
	Key      string            `json:"key"` // Cart item key (not numeric ID)
	ID       int               `json:"id"`  // Product or variation ID
	Name     string            `json:"name"`
	Quantity int               `json:"quantity"`
	Prices   WooCartItemPrices `json:"prices"`
}

// WooCartItemPrices contains price info for a cart item.
type WooCartItemPrices struct {
	Price        string `json:"price"` // Minor units
	RegularPrice string `json:"regular_price"`
	SalePrice    string `json:"sale_price"`
}

// WooTotals contains cart totals. Store API amounts are minor units as strings.
type WooTotals struct {
	CurrencyCode      string       `json:"currency_code"`
	CurrencyMinorUnit int          `json:"currency_minor_unit"`
	TotalItems        string       `json:"total_items"`
	TotalShipping     string       `json:"total_shipping"`
	TotalPrice        string       `json:"total_price"`
	TotalTax          string       `json:"total_tax"`
	TaxLines          []WooTaxLine `json:"tax_lines,omitempty"`
}

// WooTaxLine is one tax rate applied to the cart.
type WooTaxLine struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	Rate  string `json:"rate"`
}

// WooAddress represents a WooCommerce address. The same shape is used by the
// Store API and REST API v3.
type WooAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// WooShippingPkg represents a shipping package with available rates.
type WooShippingPkg struct {
	PackageID     int               `json:"package_id"`
	Name          string            `json:"name"`
	ShippingRates []WooShippingRate `json:"shipping_rates"`
}

// WooShippingRate represents a single shipping option.
type WooShippingRate struct {
	RateID     string `json:"rate_id"` // "{method_id}:{instance_id}"
	Name       string `json:"name"`
	Price      string `json:"price"` // Minor units as string
	MethodID   string `json:"method_id"`
	InstanceID int    `json:"instance_id"`
	Selected   bool   `json:"selected"`
}

// WooErrorResponse represents a WooCommerce API error.
type WooErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status int `json:"status"`
	} `json:"data"`
}

// === Batch API Types ===

// WooBatchRequest is the payload for POST /batch endpoint.
type WooBatchRequest struct {
	Requests []WooBatchOperation `json:"requests"`
}

// WooBatchOperation is a single operation within a batch.
// Headers carries per-operation authentication (Cart-Token, Nonce).
type WooBatchOperation struct {
	Path    string            `json:"path"`
	Method  string            `json:"method"`
	Body    json.RawMessage   `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// WooBatchResponse is the response from POST /batch endpoint.
type WooBatchResponse struct {
	Responses []WooBatchResult `json:"responses"`
}

// WooBatchResult is a single result within a batch response.
type WooBatchResult struct {
	Status  int             `json:"status"`
	Body    json.RawMessage `json:"body"`
	Headers WooBatchHeaders `json:"headers"`
}

// WooBatchHeaders contains headers from a batch response.
type WooBatchHeaders struct {
	Nonce     string `json:"Nonce"`
	CartToken string `json:"Cart-Token"`
}

// === REST API v3 Types ===

// RestProduct is a product or variation from /wc/v3/products.
// REST v3 prices are decimal strings.
type RestProduct struct {
	ID           int             `json:"id"`
	ParentID     int             `json:"parent_id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Permalink    string          `json:"permalink"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Description  string          `json:"description"`
	SKU          string          `json:"sku"`
	Price        string          `json:"price"`
	RegularPrice string          `json:"regular_price"`
	SalePrice    string          `json:"sale_price"`
	Downloadable bool            `json:"downloadable"`
	Virtual      bool            `json:"virtual"`
	Purchasable  bool            `json:"purchasable"`
	StockStatus  string          `json:"stock_status"` // instock, outofstock, onbackorder
	Images       []RestImage     `json:"images"`
	Attributes   []RestAttribute `json:"attributes"`
	Variations   []int           `json:"variations"`
}

// RestVariation is an entry of /wc/v3/products/{id}/variations.
type RestVariation struct {
	ID           int                      `json:"id"`
	SKU          string                   `json:"sku"`
	Status       string                   `json:"status"`
	Price        string                   `json:"price"`
	RegularPrice string                   `json:"regular_price"`
	SalePrice    string                   `json:"sale_price"`
	Purchasable  bool                     `json:"purchasable"`
	StockStatus  string                   `json:"stock_status"`
	Image        *RestImage               `json:"image"`
	Attributes   []RestVariationAttribute `json:"attributes"`
}

// RestImage is a product image.
type RestImage struct {
	ID  int    `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// RestAttribute is a product attribute and its options.
type RestAttribute struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Variation bool     `json:"variation"`
	Options   []string `json:"options"`
}

// RestVariationAttribute is the option a variation selects.
type RestVariationAttribute struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Option string `json:"option"`
}

// RestCustomer is a /wc/v3/customers entry.
type RestCustomer struct {
	ID        int        `json:"id,omitempty"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Billing   WooAddress `json:"billing"`
}

// RestCoupon is a /wc/v3/coupons entry.
type RestCoupon struct {
	ID            int    `json:"id,omitempty"`
	Code          string `json:"code"`
	DiscountType  string `json:"discount_type"`
	Amount        string `json:"amount"`
	Description   string `json:"description,omitempty"`
	ProductIDs    []int  `json:"product_ids,omitempty"`
	UsageLimit    int    `json:"usage_limit,omitempty"`
	IndividualUse bool   `json:"individual_use"`
}

// RestMeta is a metadata entry on an order.
type RestMeta struct {
	ID    int    `json:"id,omitempty"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// RestOrderLine is a line_items entry of an order request.
type RestOrderLine struct {
	ProductID   int    `json:"product_id,omitempty"`
	VariationID int    `json:"variation_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Quantity    int    `json:"quantity"`
	Subtotal    string `json:"subtotal"`
	Total       string `json:"total"`
}

// RestShippingLine is a shipping_lines entry of an order request.
type RestShippingLine struct {
	MethodID    string `json:"method_id"`
	InstanceID  string `json:"instance_id,omitempty"`
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
}

// RestCouponLine is a coupon_lines entry of an order request.
type RestCouponLine struct {
	Code string `json:"code"`
}

// RestOrderRequest is the POST /wc/v3/orders body.
type RestOrderRequest struct {
	CustomerID         int                `json:"customer_id,omitempty"`
	Status             string             `json:"status,omitempty"`
	Currency           string             `json:"currency,omitempty"`
	Billing            WooAddress         `json:"billing"`
	Shipping           WooAddress         `json:"shipping"`
	LineItems          []RestOrderLine    `json:"line_items"`
	ShippingLines      []RestShippingLine `json:"shipping_lines,omitempty"`
	CouponLines        []RestCouponLine   `json:"coupon_lines,omitempty"`
	PaymentMethod      string             `json:"payment_method,omitempty"`
	PaymentMethodTitle string             `json:"payment_method_title,omitempty"`
	TransactionID      string             `json:"transaction_id,omitempty"`
	SetPaid            bool               `json:"set_paid"`
	MetaData           []RestMeta         `json:"meta_data,omitempty"`
}

// RestOrder is the subset of an order response the bridge reads.
type RestOrder struct {
	ID       int        `json:"id"`
	OrderKey string     `json:"order_key"`
	Status   string     `json:"status"`
	MetaData []RestMeta `json:"meta_data"`
}
