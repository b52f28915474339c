// Package quote rebuilds a partner order in a scratch cart to obtain the
// storefront's own shipping rates, tax total and per-line availability.
package quote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"orderbridge/internal/metrics"
	"orderbridge/internal/model"
	"orderbridge/internal/remote"
	"orderbridge/internal/storefront"
	"orderbridge/internal/taxcache"
)

// Line is the availability of one partner line item.
type Line struct {
	LineItemID string `json:"line_item_id"`
	ProductID  string `json:"product_id"`
	VariantID  string `json:"variant_id,omitempty"`
	Quantity   int    `json:"quantity"`
	Available  bool   `json:"available"`
}

// Quote is the result of one pricing pass. Amounts are minor units.
type Quote struct {
	OrderID         string                `json:"order_id"`
	Lines           []Line                `json:"lines"`
	ShippingAddress model.Address         `json:"shipping_address"`
	ShippingRates   []remote.ShippingRate `json:"shipping_rates"`
	TaxTotal        int64                 `json:"tax_amt"`
}

// Availability returns the per-line availability in the shape the partner expects.
func (q *Quote) Availability() []remote.Availability {
	out := make([]remote.Availability, len(q.Lines))
	for i, l := range q.Lines {
		out[i] = remote.Availability{LineItemID: l.LineItemID, Available: l.Available}
	}
	return out
}

// Builder assembles quotes.
type Builder struct {
	remote remote.API
	store  storefront.Storefront
	taxes  taxcache.Cache
	logger *slog.Logger
}

// NewBuilder creates a Builder. A nil cache disables tax reuse.
func NewBuilder(api remote.API, store storefront.Storefront, taxes taxcache.Cache, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Builder{remote: api, store: store, taxes: taxes, logger: logger}
}

// Build fetches the order's lines from the partner, replays them into a fresh
// scratch cart and runs the storefront's shipping and tax calculation.
// The scratch cart is emptied before Build returns, on every path.
//
// Lines that cannot be added (unknown product, out of stock, bad quantity)
// are reported unavailable instead of failing the quote.
func (b *Builder) Build(ctx context.Context, orderID string) (*Quote, error) {
	order, err := b.remote.LineItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	cart, err := b.store.NewScratchCart(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening scratch cart: %w", err)
	}
	defer func() {
		if err := cart.Empty(context.WithoutCancel(ctx)); err != nil {
			b.logger.Error("failed to empty scratch cart", "order_id", orderID, "error", err)
		}
	}()

	q := &Quote{OrderID: orderID, Lines: make([]Line, 0, len(order.LineItems))}
	for _, item := range order.LineItems {
		q.Lines = append(q.Lines, b.addLine(ctx, cart, item))
	}

	q.ShippingAddress = shippingAddress(order.ShippingAddress)
	if err := cart.SetShippingAddress(ctx, q.ShippingAddress); err != nil {
		return nil, fmt.Errorf("setting shipping address: %w", err)
	}
	if err := cart.CalculateShipping(ctx); err != nil {
		return nil, fmt.Errorf("calculating shipping: %w", err)
	}
	if err := cart.CalculateTotals(ctx); err != nil {
		return nil, fmt.Errorf("calculating totals: %w", err)
	}

	rates, err := cart.ShippingOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading shipping options: %w", err)
	}
	q.ShippingRates = make([]remote.ShippingRate, 0, len(rates))
	for _, r := range rates {
		q.ShippingRates = append(q.ShippingRates, remote.ShippingRate{
			Handle: model.EncodeRateHandle(model.RateHandle{
				Method:   r.MethodID,
				Instance: r.InstanceID,
				Amount:   r.Amount,
				Label:    r.Label,
			}),
			Title:  r.Label,
			Amount: r.Amount,
		})
	}

	taxes, err := cart.Taxes(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading taxes: %w", err)
	}
	for _, t := range taxes {
		q.TaxTotal += t.Amount
	}

	if b.taxes != nil {
		if err := b.taxes.Set(ctx, orderID, q.TaxTotal); err != nil {
			b.logger.Warn("failed to cache tax total", "order_id", orderID, "error", err)
		}
	}

	b.logger.Debug("quote built",
		"order_id", orderID,
		"lines", len(q.Lines),
		"rates", len(q.ShippingRates),
		"tax_amt", q.TaxTotal,
	)
	return q, nil
}

// CachedTax returns the tax total cached by a recent Build for the order.
// Cache errors are treated as a miss.
func (b *Builder) CachedTax(ctx context.Context, orderID string) (int64, bool) {
	if b.taxes == nil {
		return 0, false
	}
	amount, ok, err := b.taxes.Get(ctx, orderID)
	switch {
	case err != nil:
		metrics.TaxCacheLookups.WithLabelValues("error").Inc()
		b.logger.Warn("tax cache lookup failed", "order_id", orderID, "error", err)
		return 0, false
	case ok:
		metrics.TaxCacheLookups.WithLabelValues("hit").Inc()
	default:
		metrics.TaxCacheLookups.WithLabelValues("miss").Inc()
	}
	return amount, ok
}

func (b *Builder) addLine(ctx context.Context, cart storefront.ScratchCart, item remote.LineItem) Line {
	line := Line{
		LineItemID: item.ID,
		ProductID:  item.ProductID,
		VariantID:  item.VariantID,
		Quantity:   item.Quantity,
	}
	ci := storefront.CartItem{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity}
	if ci.PurchasableID() == "" || ci.Quantity <= 0 {
		return line
	}

	if err := cart.AddItem(ctx, ci); err != nil {
		b.logger.Debug("line not added to scratch cart", "line_item_id", item.ID, "product_id", ci.PurchasableID(), "error", err)
		return line
	}

	inStock, err := b.store.IsInStock(ctx, ci.PurchasableID())
	if err != nil {
		b.logger.Debug("stock lookup failed", "product_id", ci.PurchasableID(), "error", err)
		return line
	}
	line.Available = inStock
	return line
}

func shippingAddress(a *remote.Address) model.Address {
	if a == nil {
		return model.Address{}
	}
	state := a.ProvinceCode
	if state == "" {
		state = a.Province
	}
	first, last := a.FirstName, a.LastName
	if parts := strings.Fields(a.Name); first == "" && last == "" && len(parts) > 0 {
		first = parts[0]
		last = strings.Join(parts[1:], " ")
	}
	return model.Address{
		FirstName: first,
		LastName:  last,
		Company:   a.Company,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		State:     state,
		Postcode:  a.Zip,
		Country:   NormalizeCountry(a.CountryCode, a.Country),
		Email:     a.Email,
		Phone:     a.Phone,
	}
}
