package directive

import (
	"context"
	"log/slog"

	"orderbridge/internal/importer"
	"orderbridge/internal/model"
	"orderbridge/internal/quote"
	"orderbridge/internal/remote"
)

type updateTaxAmounts struct {
	remote remote.API
	quotes *quote.Builder
}

func (h *updateTaxAmounts) Name() string { return NameUpdateTaxAmounts }

// Handle reports the order's tax total, reusing a total computed within the
// cache window instead of rebuilding the quote.
func (h *updateTaxAmounts) Handle(ctx context.Context, req *Request) (model.Outcome, error) {
	orderID := req.OrderID()
	if orderID == "" {
		return missingOrderID(), nil
	}

	tax, cached := h.quotes.CachedTax(ctx, orderID)
	if !cached {
		q, err := h.quotes.Build(ctx, orderID)
		if err != nil {
			return model.Outcome{}, err
		}
		tax = q.TaxTotal
	}

	if err := h.remote.UpdateTaxAmount(ctx, orderID, tax); err != nil {
		return model.Outcome{}, err
	}
	return model.OK(map[string]any{"tax_amt": tax, "cached": cached}), nil
}

type updateShippingRates struct {
	remote remote.API
	quotes *quote.Builder
}

func (h *updateShippingRates) Name() string { return NameUpdateShippingRates }

func (h *updateShippingRates) Handle(ctx context.Context, req *Request) (model.Outcome, error) {
	orderID := req.OrderID()
	if orderID == "" {
		return missingOrderID(), nil
	}

	q, err := h.quotes.Build(ctx, orderID)
	if err != nil {
		return model.Outcome{}, err
	}
	if err := h.remote.UpdateShipRates(ctx, orderID, q.ShippingRates); err != nil {
		return model.Outcome{}, err
	}
	return model.OK(map[string]any{"shipping_rates": q.ShippingRates}), nil
}

type updateAvailability struct {
	remote remote.API
	quotes *quote.Builder
	logger *slog.Logger
}

func (h *updateAvailability) Name() string { return NameUpdateAvailability }

// Handle reports per-line availability. When the quote cannot be built, every
// line item named in the directive's line_items argument is reported
// unavailable instead of failing the directive.
func (h *updateAvailability) Handle(ctx context.Context, req *Request) (model.Outcome, error) {
	orderID := req.OrderID()
	if orderID == "" {
		return missingOrderID(), nil
	}

	q, err := h.quotes.Build(ctx, orderID)
	if err == nil {
		items := q.Availability()
		if err := h.remote.UpdateAvailability(ctx, orderID, items); err != nil {
			return model.Outcome{}, err
		}
		return model.OK(map[string]any{"line_items": items}), nil
	}

	h.logger.Warn("availability quote failed, reporting all lines unavailable", "order_id", orderID, "error", err)
	ids := model.ArgList(req.Directive.Args, "line_items")
	items := make([]remote.Availability, len(ids))
	for i, id := range ids {
		items[i] = remote.Availability{LineItemID: id, Available: false}
	}
	if err := h.remote.UpdateAvailability(ctx, orderID, items); err != nil {
		return model.Outcome{}, err
	}
	return model.OK(map[string]any{"line_items": items, "degraded": true}), nil
}

type completeOrder struct {
	remote   remote.API
	importer *importer.Importer
	logger   *slog.Logger
}

func (h *completeOrder) Name() string { return NameCompleteOrder }

// Handle imports the partner order into the storefront and reports the native
// order id back. A second call for the same order answers "exists" without
// creating anything.
func (h *completeOrder) Handle(ctx context.Context, req *Request) (model.Outcome, error) {
	orderID := req.OrderID()
	if orderID == "" {
		return missingOrderID(), nil
	}

	payload, err := h.remote.OrderData(ctx, orderID)
	if err != nil {
		return model.Outcome{}, err
	}

	res, err := h.importer.Import(ctx, importer.Normalize(payload), orderID)
	if err != nil {
		h.logger.Error("order import failed", "order_id", orderID, "error", err)
		if rerr := h.remote.CompleteOrder(ctx, orderID, remote.UnknownErrorExternalID, remote.FulfillmentUnfulfilled); rerr != nil {
			h.logger.Error("failed to report import failure", "order_id", orderID, "error", rerr)
		}
		return model.Outcome{
			Status: model.StatusError,
			Data:   map[string]any{"external_id": remote.UnknownErrorExternalID},
			Error:  err.Error(),
		}, nil
	}
	if res.Exists {
		return model.Outcome{Status: model.StatusExists}, nil
	}

	if err := h.remote.CompleteOrder(ctx, orderID, res.OrderID, remote.FulfillmentFulfilled); err != nil {
		return model.Outcome{}, err
	}
	return model.Outcome{
		Status:  model.StatusOK,
		OrderID: orderID,
		Data: map[string]any{
			"external_id":  res.OrderID,
			"externalData": map[string]any{"order_key": res.OrderKey, "coupons": res.Coupons},
		},
	}, nil
}
