package remote

import "context"

// API is the set of partner operations directive handlers use.
type API interface {
	HealthCheck(ctx context.Context) (string, error)
	LineItems(ctx context.Context, orderID string) (*OrderLines, error)
	OrderData(ctx context.Context, orderID string) (*OrderPayload, error)
	UpdateShipRates(ctx context.Context, orderID string, rates []ShippingRate) error
	UpdateAvailability(ctx context.Context, orderID string, items []Availability) error
	CompleteOrder(ctx context.Context, orderID, externalID, fulfillmentStatus string) error
	ImportProduct(ctx context.Context, input ProductInput) (string, error)
	UpdateTaxAmount(ctx context.Context, orderID string, taxAmount int64) error
}

// Mock implements API for testing.
// Each method can be configured via function fields; unset mutations succeed.
type Mock struct {
	HealthCheckFunc        func(ctx context.Context) (string, error)
	LineItemsFunc          func(ctx context.Context, orderID string) (*OrderLines, error)
	OrderDataFunc          func(ctx context.Context, orderID string) (*OrderPayload, error)
	UpdateShipRatesFunc    func(ctx context.Context, orderID string, rates []ShippingRate) error
	UpdateAvailabilityFunc func(ctx context.Context, orderID string, items []Availability) error
	CompleteOrderFunc      func(ctx context.Context, orderID, externalID, fulfillmentStatus string) error
	ImportProductFunc      func(ctx context.Context, input ProductInput) (string, error)
	UpdateTaxAmountFunc    func(ctx context.Context, orderID string, taxAmount int64) error
}

// HealthCheck calls the configured HealthCheckFunc or answers "ok".
func (m *Mock) HealthCheck(ctx context.Context) (string, error) {
	if m.HealthCheckFunc != nil {
		return m.HealthCheckFunc(ctx)
	}
	return "ok", nil
}

// LineItems calls the configured LineItemsFunc or returns an error.
func (m *Mock) LineItems(ctx context.Context, orderID string) (*OrderLines, error) {
	if m.LineItemsFunc != nil {
		return m.LineItemsFunc(ctx, orderID)
	}
	return nil, &GraphQLError{Message: "order " + orderID + " not found"}
}

// OrderData calls the configured OrderDataFunc or returns an error.
func (m *Mock) OrderData(ctx context.Context, orderID string) (*OrderPayload, error) {
	if m.OrderDataFunc != nil {
		return m.OrderDataFunc(ctx, orderID)
	}
	return nil, &GraphQLError{Message: "order " + orderID + " not found"}
}

func (m *Mock) UpdateShipRates(ctx context.Context, orderID string, rates []ShippingRate) error {
	if m.UpdateShipRatesFunc != nil {
		return m.UpdateShipRatesFunc(ctx, orderID, rates)
	}
	return nil
}

func (m *Mock) UpdateAvailability(ctx context.Context, orderID string, items []Availability) error {
	if m.UpdateAvailabilityFunc != nil {
		return m.UpdateAvailabilityFunc(ctx, orderID, items)
	}
	return nil
}

func (m *Mock) CompleteOrder(ctx context.Context, orderID, externalID, fulfillmentStatus string) error {
	if m.CompleteOrderFunc != nil {
		return m.CompleteOrderFunc(ctx, orderID, externalID, fulfillmentStatus)
	}
	return nil
}

// ImportProduct calls the configured ImportProductFunc or returns an empty id.
func (m *Mock) ImportProduct(ctx context.Context, input ProductInput) (string, error) {
	if m.ImportProductFunc != nil {
		return m.ImportProductFunc(ctx, input)
	}
	return "", nil
}

func (m *Mock) UpdateTaxAmount(ctx context.Context, orderID string, taxAmount int64) error {
	if m.UpdateTaxAmountFunc != nil {
		return m.UpdateTaxAmountFunc(ctx, orderID, taxAmount)
	}
	return nil
}

var (
	_ API = (*Client)(nil)
	_ API = (*Mock)(nil)
)
