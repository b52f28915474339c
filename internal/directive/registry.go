// Package directive routes partner directives to their handlers.
//
// A batch is dispatched sequentially. Every directive produces exactly one
// result in input order; a handler error or panic only fails its own
// directive.
package directive

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"orderbridge/internal/model"
)

// Request is what a handler receives.
type Request struct {
	Directive   model.Directive
	Credentials model.Credentials
}

// OrderID returns args.order_id.
func (r *Request) OrderID() string {
	return r.Directive.OrderID()
}

// Arg returns a string argument.
func (r *Request) Arg(key string) string {
	return model.ArgString(r.Directive.Args, key)
}

// Handler executes one directive kind.
// A returned error marks the directive failed; business rejections are
// reported through the Outcome status instead.
type Handler interface {
	Name() string
	Handle(ctx context.Context, req *Request) (model.Outcome, error)
}

type funcHandler struct {
	name string
	fn   func(ctx context.Context, req *Request) (model.Outcome, error)
}

func (h funcHandler) Name() string { return h.name }

func (h funcHandler) Handle(ctx context.Context, req *Request) (model.Outcome, error) {
	return h.fn(ctx, req)
}

// HandlerFunc adapts a function to a Handler.
func HandlerFunc(name string, fn func(ctx context.Context, req *Request) (model.Outcome, error)) Handler {
	return funcHandler{name: name, fn: fn}
}

// NoHandlerError is returned for a directive name with no registered handler.
type NoHandlerError struct {
	Name string
}

func (e *NoHandlerError) Error() string {
	return fmt.Sprintf("no handler for directive %q", e.Name)
}

// Registry maps directive names to handlers. Names are case-insensitive.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry validates and indexes handlers. Empty or duplicate names are rejected.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		if h == nil {
			return nil, fmt.Errorf("directive registry: nil handler")
		}
		key := normalizeName(h.Name())
		if key == "" {
			return nil, fmt.Errorf("directive registry: handler with empty name")
		}
		if _, dup := r.handlers[key]; dup {
			return nil, fmt.Errorf("directive registry: duplicate handler %q", key)
		}
		r.handlers[key] = h
	}
	if len(r.handlers) == 0 {
		return nil, fmt.Errorf("directive registry: no handlers")
	}
	return r, nil
}

// Lookup returns the handler for name.
func (r *Registry) Lookup(name string) (Handler, error) {
	h, ok := r.handlers[normalizeName(name)]
	if !ok {
		return nil, &NoHandlerError{Name: name}
	}
	return h, nil
}

// Names lists the registered directive names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
