package directive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"orderbridge/internal/metrics"
	"orderbridge/internal/model"
	"orderbridge/internal/remote"
)

// Dispatcher runs directive batches against a Registry.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{registry: registry, logger: logger}
}

// Registry returns the registry the dispatcher routes through.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs every directive in order and returns one result per directive.
// Directives run sequentially: they share the storefront's scratch cart and
// the tax cache.
func (d *Dispatcher) Dispatch(ctx context.Context, creds model.Credentials, directives []model.Directive) model.ResultEnvelope {
	results := make([]model.DirectiveResult, 0, len(directives))
	for _, dir := range directives {
		results = append(results, d.dispatchOne(ctx, creds, dir))
	}
	return model.ResultEnvelope{Results: results}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, creds model.Credentials, dir model.Directive) model.DirectiveResult {
	start := time.Now()
	req := &Request{Directive: dir, Credentials: creds}

	outcome, err := d.run(ctx, req)
	if err != nil {
		outcome = failure(err)
	}
	result := Normalize(dir, outcome)

	duration := time.Since(start)
	name := normalizeName(dir.Directive)
	var noHandler *NoHandlerError
	if errors.As(err, &noHandler) {
		name = "unknown"
	}
	metrics.Directives.WithLabelValues(name, statusClass(result.Status)).Inc()
	metrics.DirectiveDuration.WithLabelValues(name).Observe(duration.Seconds())

	attrs := []any{
		"directive", dir.Directive,
		"directive_id", dir.ID,
		"status", result.Status,
		"duration_ms", duration.Milliseconds(),
	}
	if result.OrderID != "" {
		attrs = append(attrs, "order_id", result.OrderID)
	}
	if err != nil {
		d.logger.Error("directive failed", append(attrs, "error", err)...)
	} else {
		d.logger.Info("directive", attrs...)
	}
	return result
}

// run executes the handler, converting a panic into an error.
func (d *Dispatcher) run(ctx context.Context, req *Request) (outcome model.Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec, Stack: string(debug.Stack())}
		}
	}()

	h, err := d.registry.Lookup(req.Directive.Directive)
	if err != nil {
		return model.Outcome{}, err
	}
	return h.Handle(ctx, req)
}

// PanicError wraps a recovered handler panic.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Normalize turns a handler outcome into the wire result. An empty status is
// "ok"; the directive's order_id is carried over when the outcome has none.
func Normalize(dir model.Directive, o model.Outcome) model.DirectiveResult {
	status := o.Status
	if status == "" {
		status = model.StatusOK
	}
	orderID := o.OrderID
	if orderID == "" {
		orderID = dir.OrderID()
	}
	return model.DirectiveResult{
		SourceID:        dir.ID,
		SourceDirective: dir.Directive,
		Status:          status,
		OrderID:         orderID,
		Data:            o.Data,
		Result:          o.Result,
		Error:           o.Error,
	}
}

// failure builds the "failed" outcome for a handler error or panic.
func failure(err error) model.Outcome {
	data := map[string]any{"message": err.Error()}

	var panicErr *PanicError
	var gqlErr *remote.GraphQLError
	var noHandler *NoHandlerError
	switch {
	case errors.As(err, &panicErr):
		data["details"] = panicErr.Stack
	case errors.As(err, &gqlErr):
		data["details"] = map[string]any{
			"status_code": gqlErr.StatusCode,
			"query":       gqlErr.Query,
		}
	case errors.As(err, &noHandler):
		data["details"] = "unknown directive"
	default:
		data["details"] = fmt.Sprintf("%T", err)
	}
	return model.Outcome{Status: model.StatusFailed, Data: data}
}

// statusClass bounds metric label cardinality: free-text rejections collapse to "rejected".
func statusClass(status string) string {
	switch status {
	case model.StatusOK, model.StatusError, model.StatusFailed, model.StatusFuture, model.StatusExists:
		return status
	default:
		return "rejected"
	}
}
