package directive

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"orderbridge/internal/importer"
	"orderbridge/internal/model"
	"orderbridge/internal/quote"
	"orderbridge/internal/remote"
	"orderbridge/internal/storefront"
)

// Directive names understood by the bridge.
const (
	NameHealthCheck            = "health_check"
	NameUpdateTaxAmounts       = "update_tax_amounts"
	NameUpdateShippingRates    = "update_available_shipping_rates"
	NameUpdateAvailability     = "update_availability"
	NameCompleteOrder          = "complete_order"
	NameImportProductFromURL   = "import_product_from_url"
	NameUpdateProductPricing   = "update_product_pricing"
	NameInventoryCheck         = "inventory_check"
	NameProductInformationSync = "product_information_sync"
)

// Deps are the collaborators directive handlers use.
type Deps struct {
	Remote   remote.API
	Store    storefront.Storefront
	Quotes   *quote.Builder
	Importer *importer.Importer
	Logger   *slog.Logger
}

// Handlers returns one handler per directive kind.
func Handlers(deps Deps) []Handler {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return []Handler{
		&healthCheck{remote: deps.Remote},
		&updateTaxAmounts{remote: deps.Remote, quotes: deps.Quotes},
		&updateShippingRates{remote: deps.Remote, quotes: deps.Quotes},
		&updateAvailability{remote: deps.Remote, quotes: deps.Quotes, logger: deps.Logger},
		&completeOrder{remote: deps.Remote, importer: deps.Importer, logger: deps.Logger},
		&importProduct{remote: deps.Remote, store: deps.Store},
		reserved(NameUpdateProductPricing),
		reserved(NameInventoryCheck),
		&productInformationSync{store: deps.Store},
	}
}

// NewDefaultRegistry builds the registry of every directive kind.
func NewDefaultRegistry(deps Deps) (*Registry, error) {
	return NewRegistry(Handlers(deps)...)
}

// reserved answers "future" for directives the partner may send but the bridge
// does not act on yet.
func reserved(name string) Handler {
	return HandlerFunc(name, func(context.Context, *Request) (model.Outcome, error) {
		return model.Outcome{Status: model.StatusFuture}, nil
	})
}

// healthCheck round-trips a liveness probe to the partner.
type healthCheck struct {
	remote remote.API
}

func (h *healthCheck) Name() string { return NameHealthCheck }

// Handle reports ok when the partner answers "ok". Any other answer, or the
// partner's error message, becomes the status.
func (h *healthCheck) Handle(ctx context.Context, _ *Request) (model.Outcome, error) {
	answer, err := h.remote.HealthCheck(ctx)
	if err != nil {
		msg := err.Error()
		var gqlErr *remote.GraphQLError
		if errors.As(err, &gqlErr) {
			msg = gqlErr.Message
		}
		return model.Outcome{Status: msg, Data: map[string]any{"healthy": false}}, nil
	}
	if answer != model.StatusOK {
		if answer == "" {
			answer = model.StatusError
		}
		return model.Outcome{Status: answer, Data: map[string]any{"healthy": false}}, nil
	}
	return model.OK(map[string]any{"healthy": true}), nil
}

func missingOrderID() model.Outcome {
	return model.Outcome{Status: model.StatusError, Error: "order_id is required"}
}
