package remote

import (
	"context"
	"encoding/json"
	"fmt"
)

// Fulfillment statuses reported by CompleteOrder.
const (
	FulfillmentFulfilled   = "FULFILLED"
	FulfillmentUnfulfilled = "UNFULFILLED"
)

// UnknownErrorExternalID is reported as external id when an import fails.
const UnknownErrorExternalID = "unknown-error"

const (
	healthCheckQuery = `query HealthCheck { healthCheck }`

	lineItemsQuery = `query OrderLineItems($id: ID!) {
  order(id: $id) {
    id
    lineItems { id productId variantId title quantity unitPrice }
    shippingAddress { name firstName lastName company address1 address2 city province provinceCode country countryCode zip email phone }
  }
}`

	orderDataQuery = `query OrderData($id: ID!) {
  order(id: $id) {
    id name status currency subtotal shippingTotal taxTotal total shippingHandle
    customer { email firstName lastName phone }
    billingAddress { name firstName lastName company address1 address2 city province provinceCode country countryCode zip email phone }
    shippingAddress { name firstName lastName company address1 address2 city province provinceCode country countryCode zip email phone }
    lineItems { id productId variantId title quantity unitPrice }
    transaction { id name }
  }
}`

	updateShippingRatesMutation = `mutation UpdateShippingRates($id: ID!, $rates: [ShippingRateInput!]!) {
  updateShippingRates(id: $id, rates: $rates) { ok }
}`

	updateAvailabilityMutation = `mutation UpdateAvailability($id: ID!, $lineItems: [LineItemAvailabilityInput!]!) {
  updateAvailability(id: $id, lineItems: $lineItems) { ok }
}`

	completeOrderMutation = `mutation CompleteOrder($id: ID!, $externalId: String!, $fulfillmentStatus: FulfillmentStatus!) {
  completeOrder(id: $id, externalId: $externalId, fulfillmentStatus: $fulfillmentStatus) { ok }
}`

	importProductMutation = `mutation ImportProduct($input: ProductInput!) {
  importProduct(input: $input) { id }
}`

	updateTaxAmountMutation = `mutation UpdateTaxAmount($id: ID!, $taxAmount: Int!) {
  updateTaxAmount(id: $id, taxAmount: $taxAmount) { ok }
}`
)

// LineItem is an order line as the partner system reports it. Prices are minor units.
type LineItem struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// Address is a partner postal address. Name is the full name when the
// partner only has one field.
type Address struct {
	Name         string `json:"name"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Company      string `json:"company"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	Province     string `json:"province"`
	ProvinceCode string `json:"provinceCode"`
	Country      string `json:"country"`
	CountryCode  string `json:"countryCode"`
	Zip          string `json:"zip"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
}

// OrderLines is the result of LineItems.
type OrderLines struct {
	ID              string     `json:"id"`
	LineItems       []LineItem `json:"lineItems"`
	ShippingAddress *Address   `json:"shippingAddress"`
}

// Customer is the buyer on a partner order.
type Customer struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Transaction is the payment captured by the partner system.
type Transaction struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrderPayload is the full partner order returned by OrderData. Amounts are minor units.
type OrderPayload struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Status          string       `json:"status"`
	Currency        string       `json:"currency"`
	Subtotal        int64        `json:"subtotal"`
	ShippingTotal   int64        `json:"shippingTotal"`
	TaxTotal        int64        `json:"taxTotal"`
	Total           int64        `json:"total"`
	ShippingHandle  string       `json:"shippingHandle"`
	Customer        Customer     `json:"customer"`
	BillingAddress  *Address     `json:"billingAddress"`
	ShippingAddress *Address     `json:"shippingAddress"`
	LineItems       []LineItem   `json:"lineItems"`
	Transaction     *Transaction `json:"transaction"`
}

// ShippingRate is one option reported by UpdateShipRates.
type ShippingRate struct {
	Handle string `json:"handle"`
	Title  string `json:"title"`
	Amount int64  `json:"amount"`
}

// Availability is the purchasability of one partner line item.
type Availability struct {
	LineItemID string `json:"lineItemId"`
	Available  bool   `json:"available"`
}

// ProductInput describes a storefront product offered to the partner catalog.
type ProductInput struct {
	SourceID       string           `json:"sourceId"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	URL            string           `json:"url"`
	SKU            string           `json:"sku,omitempty"`
	Price          int64            `json:"price"`
	CompareAtPrice int64            `json:"compareAtPrice,omitempty"`
	Available      bool             `json:"available"`
	Images         []string         `json:"images"`
	Options        []ProductOption  `json:"options"`
	Variants       []ProductVariant `json:"variants"`
}

// ProductOption is a variation axis and its values.
type ProductOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// ProductVariant is one purchasable combination.
type ProductVariant struct {
	SourceID       string        `json:"sourceId"`
	SKU            string        `json:"sku,omitempty"`
	Price          int64         `json:"price"`
	CompareAtPrice int64         `json:"compareAtPrice,omitempty"`
	Available      bool          `json:"available"`
	Image          string        `json:"image,omitempty"`
	Options        []OptionValue `json:"options"`
}

// OptionValue is a variant's value on one option.
type OptionValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HealthCheck asks the partner system for liveness. A healthy partner answers "ok".
func (c *Client) HealthCheck(ctx context.Context) (string, error) {
	var out struct {
		HealthCheck string `json:"healthCheck"`
	}
	if err := c.call(ctx, healthCheckQuery, nil, &out); err != nil {
		return "", err
	}
	return out.HealthCheck, nil
}

// LineItems fetches the line items and shipping address of an order.
func (c *Client) LineItems(ctx context.Context, orderID string) (*OrderLines, error) {
	var out struct {
		Order *OrderLines `json:"order"`
	}
	if err := c.call(ctx, lineItemsQuery, map[string]any{"id": orderID}, &out); err != nil {
		return nil, err
	}
	if out.Order == nil {
		return nil, &GraphQLError{Query: Excerpt(lineItemsQuery), Message: fmt.Sprintf("order %s not found", orderID)}
	}
	return out.Order, nil
}

// OrderData fetches the complete order used for import.
func (c *Client) OrderData(ctx context.Context, orderID string) (*OrderPayload, error) {
	var out struct {
		Order *OrderPayload `json:"order"`
	}
	if err := c.call(ctx, orderDataQuery, map[string]any{"id": orderID}, &out); err != nil {
		return nil, err
	}
	if out.Order == nil {
		return nil, &GraphQLError{Query: Excerpt(orderDataQuery), Message: fmt.Sprintf("order %s not found", orderID)}
	}
	return out.Order, nil
}

// UpdateShipRates reports the shipping options available for an order.
func (c *Client) UpdateShipRates(ctx context.Context, orderID string, rates []ShippingRate) error {
	if rates == nil {
		rates = []ShippingRate{}
	}
	return c.call(ctx, updateShippingRatesMutation, map[string]any{"id": orderID, "rates": rates}, nil)
}

// UpdateAvailability reports per-line purchasability for an order.
func (c *Client) UpdateAvailability(ctx context.Context, orderID string, items []Availability) error {
	if items == nil {
		items = []Availability{}
	}
	return c.call(ctx, updateAvailabilityMutation, map[string]any{"id": orderID, "lineItems": items}, nil)
}

// CompleteOrder reports the storefront order id an order was imported as.
func (c *Client) CompleteOrder(ctx context.Context, orderID, externalID, fulfillmentStatus string) error {
	return c.call(ctx, completeOrderMutation, map[string]any{
		"id":                orderID,
		"externalId":        externalID,
		"fulfillmentStatus": fulfillmentStatus,
	}, nil)
}

// ImportProduct pushes a product to the partner catalog and returns the id it was assigned.
func (c *Client) ImportProduct(ctx context.Context, input ProductInput) (string, error) {
	var out struct {
		ImportProduct struct {
			ID string `json:"id"`
		} `json:"importProduct"`
	}
	if err := c.call(ctx, importProductMutation, map[string]any{"input": input}, &out); err != nil {
		return "", err
	}
	return out.ImportProduct.ID, nil
}

// UpdateTaxAmount reports the tax total of an order in minor units.
func (c *Client) UpdateTaxAmount(ctx context.Context, orderID string, taxAmount int64) error {
	return c.call(ctx, updateTaxAmountMutation, map[string]any{"id": orderID, "taxAmount": taxAmount}, nil)
}

func (c *Client) call(ctx context.Context, query string, vars map[string]any, out any) error {
	data, err := c.RawCall(ctx, Request{Query: query, Variables: vars})
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &GraphQLError{Query: Excerpt(query), Message: "decoding data: " + err.Error(), Err: err}
	}
	return nil
}
