// Package importer turns partner orders into native storefront orders.
//
// Imports are idempotent on the partner order reference: the reference is
// written to the native order's metadata and checked before every create.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"orderbridge/internal/model"
	"orderbridge/internal/reconcile"
	"orderbridge/internal/storefront"
)

// PaymentMethod is recorded on imported orders; payment was captured by the partner.
const PaymentMethod = "remote"

// ImportResult is the outcome of Import. Exists is set instead of an error
// when the reference was already imported.
type ImportResult struct {
	Exists   bool
	OrderID  string
	OrderKey string
	Coupons  []string
}

// Importer creates native orders.
type Importer struct {
	store  storefront.Storefront
	logger *slog.Logger
}

// New creates an Importer.
func New(store storefront.Storefront, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{store: store, logger: logger}
}

// Import creates a native order for order under the external reference ref.
func (i *Importer) Import(ctx context.Context, order ImportedOrder, ref string) (*ImportResult, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, model.NewValidationError("order reference", "must not be empty")
	}
	if len(order.Products) == 0 {
		return nil, model.NewValidationError("order", "has no line items")
	}

	exists, err := i.store.OrderExistsByExternalRef(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("checking existing order: %w", err)
	}
	if exists {
		i.logger.Info("order already imported", "remote_order", ref)
		return &ImportResult{Exists: true}, nil
	}

	params := &storefront.OrderParams{
		Status:        nativeStatus(order.Order.Status),
		Currency:      order.Order.Currency,
		Billing:       order.Billing,
		Shipping:      order.Shipping,
		ShippingTotal: model.FormatMinorUnits(order.Order.Shipping),
		TaxTotal:      model.FormatMinorUnits(order.Order.Tax),
		Total:         model.FormatMinorUnits(order.Order.Total),
		PaymentMethod: PaymentMethod,
		PaymentTitle:  paymentTitle(order.Transaction),
		TransactionID: order.Transaction.ID,
		Metadata: map[string]string{
			storefront.MetaRemoteOrder:       "true",
			storefront.MetaRemoteOrderNumber: ref,
		},
	}
	if order.Name != "" {
		params.Metadata["remote_order_name"] = order.Name
	}

	if order.Customer.Email != "" {
		customer, err := i.store.FindOrCreateCustomer(ctx, storefront.Customer{
			Email:     order.Customer.Email,
			FirstName: order.Customer.FirstName,
			LastName:  order.Customer.LastName,
			Phone:     order.Customer.Phone,
		})
		if err != nil {
			return nil, fmt.Errorf("resolving customer: %w", err)
		}
		params.CustomerID = customer.ID
	}

	lines, coupons, err := i.buildLines(ctx, order.Products, ref)
	if err != nil {
		return nil, err
	}
	params.Lines = lines
	params.CouponCodes = coupons
	params.ShippingLines = i.shippingLines(order.Order)

	created, err := i.store.CreateOrder(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	i.logger.Info("order imported",
		"remote_order", ref,
		"order_id", created.ID,
		"lines", len(lines),
		"coupons", len(coupons),
	)
	return &ImportResult{OrderID: created.ID, OrderKey: created.Key, Coupons: coupons}, nil
}

// buildLines prices each line from the live catalog. Lines the buyer got
// cheaper than the local price get a single-use fixed-product coupon for the
// difference; lines priced higher, or whose product no longer resolves, are
// charged at the partner price.
func (i *Importer) buildLines(ctx context.Context, products []Product, ref string) ([]storefront.OrderLine, []string, error) {
	remoteLines := make([]reconcile.RemoteLine, 0, len(products))
	local := make(map[string]int64, len(products))
	names := make(map[string]string, len(products))

	for _, p := range products {
		remoteLines = append(remoteLines, reconcile.RemoteLine{
			LineItemID: p.LineItemID,
			ProductID:  p.ProductID,
			VariantID:  p.VariantID,
			Quantity:   p.Quantity,
			UnitPrice:  p.UnitPrice,
		})

		id := p.VariantID
		if id == "" {
			id = p.ProductID
		}
		product, err := i.store.Product(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			i.logger.Warn("imported line references missing product", "product_id", id, "line_item_id", p.LineItemID)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("looking up product %s: %w", id, err)
		}
		local[reconcile.ItemKey(p.ProductID, p.VariantID)] = product.Price
		names[p.LineItemID] = product.Name
	}

	diff := reconcile.DiffPrices(remoteLines, local)
	if !diff.IsEmpty() {
		for _, m := range diff.Markups {
			i.logger.Debug("partner price above local price",
				"remote_order", ref,
				"line_item_id", m.Line.LineItemID,
				"local_unit", m.LocalUnit,
				"remote_unit", m.RemoteUnit,
			)
		}
		i.logger.Debug("price drift",
			"remote_order", ref,
			"markdowns", len(diff.Markdowns),
			"markups", len(diff.Markups),
			"missing", len(diff.Missing),
			"markdown_total", diff.TotalDiscount(),
		)
	}
	markdowns := make(map[string]reconcile.PriceAdjustment, len(diff.Markdowns))
	for _, m := range diff.Markdowns {
		markdowns[m.Line.LineItemID] = m
	}
	missing := make(map[string]bool, len(diff.Missing))
	for _, m := range diff.Missing {
		missing[m.LineItemID] = true
	}

	lines := make([]storefront.OrderLine, 0, len(products))
	var coupons []string
	for _, p := range products {
		line := storefront.OrderLine{
			ProductID: p.ProductID,
			VariantID: p.VariantID,
			Name:      p.Title,
			Quantity:  p.Quantity,
			Subtotal:  model.FormatMinorUnits(p.UnitPrice * int64(p.Quantity)),
			Total:     model.FormatMinorUnits(p.UnitPrice * int64(p.Quantity)),
		}
		if line.Name == "" {
			line.Name = names[p.LineItemID]
		}
		if missing[p.LineItemID] {
			line.ProductID, line.VariantID = "", ""
		}

		if m, ok := markdowns[p.LineItemID]; ok {
			line.Subtotal = model.FormatMinorUnits(m.LocalUnit * int64(p.Quantity))
			code, err := i.markdownCoupon(ctx, ref, m)
			if err != nil {
				return nil, nil, err
			}
			coupons = append(coupons, code)
		}
		lines = append(lines, line)
	}
	return lines, coupons, nil
}

var couponUnsafe = regexp.MustCompile(`[^a-z0-9-]+`)

// markdownCoupon returns the coupon for a markdown line, reusing one left by an
// earlier attempt at the same import. A leftover with a different amount is
// kept and a code suffixed with the new amount is used instead.
func (i *Importer) markdownCoupon(ctx context.Context, ref string, m reconcile.PriceAdjustment) (string, error) {
	code := strings.ToLower(fmt.Sprintf("markdown-%s-%s", ref, m.Line.LineItemID))
	code = strings.Trim(couponUnsafe.ReplaceAllString(code, "-"), "-")
	amount := m.LocalUnit - m.RemoteUnit

	existing, err := i.store.CouponByCode(ctx, code)
	switch {
	case err == nil && model.ParseCents(existing.Amount) == amount:
		i.logger.Info("reusing markdown coupon", "remote_order", ref, "code", existing.Code)
		return existing.Code, nil
	case err == nil:
		code = fmt.Sprintf("%s-%d", code, amount)
		again, err := i.store.CouponByCode(ctx, code)
		if err == nil {
			return again.Code, nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			return "", fmt.Errorf("looking up markdown coupon: %w", err)
		}
	case !errors.Is(err, model.ErrNotFound):
		return "", fmt.Errorf("looking up markdown coupon: %w", err)
	}

	productID := m.Line.VariantID
	if productID == "" {
		productID = m.Line.ProductID
	}
	coupon, err := i.store.CreateCoupon(ctx, storefront.Coupon{
		Code:        code,
		Amount:      model.FormatMinorUnits(amount),
		Description: fmt.Sprintf("Partner price for order %s line %s", ref, m.Line.LineItemID),
		ProductIDs:  []string{productID},
		UsageLimit:  1,
	})
	if err != nil {
		return "", fmt.Errorf("creating markdown coupon: %w", err)
	}
	return coupon.Code, nil
}

// shippingLines synthesizes the shipping line from the chosen rate handle.
// An unparsable handle still records the shipping total under a generic method.
func (i *Importer) shippingLines(t Totals) []storefront.ShippingLine {
	if t.ShippingHandle == "" && t.Shipping == 0 {
		return nil
	}

	line := storefront.ShippingLine{
		MethodID:    "other",
		MethodTitle: "Shipping",
		Total:       model.FormatMinorUnits(t.Shipping),
	}
	if t.ShippingHandle == "" {
		return []storefront.ShippingLine{line}
	}

	h, err := model.ParseRateHandle(t.ShippingHandle)
	if err != nil {
		i.logger.Warn("unparsable shipping handle", "handle", t.ShippingHandle, "error", err)
		return []storefront.ShippingLine{line}
	}
	line.MethodID = h.Method
	line.InstanceID = h.Instance
	line.MethodTitle = h.Label
	if t.Shipping == 0 {
		line.Total = model.FormatMinorUnits(h.Amount)
	}
	return []storefront.ShippingLine{line}
}

// nativeStatus maps a partner order status to a WooCommerce order status.
func nativeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending", "unpaid":
		return "pending"
	case "on-hold", "on_hold", "authorized":
		return "on-hold"
	case "cancelled", "canceled", "voided":
		return "cancelled"
	case "refunded":
		return "refunded"
	case "completed", "fulfilled":
		return "completed"
	default:
		return "processing"
	}
}

func paymentTitle(t Transaction) string {
	if t.Name != "" {
		return t.Name
	}
	return "Partner checkout"
}
