package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// Directive statuses reported back to the partner system.
// Business rejections may also use a free-text message as status.
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusFailed = "failed"
	StatusFuture = "future"
	StatusExists = "exists"
)

// Directive is a single named operation inside an inbound batch.
type Directive struct {
	ID        string         `json:"id"`
	Directive string         `json:"directive"`
	Args      map[string]any `json:"args,omitempty"`
}

// OrderID returns args.order_id as a string, or "" when absent.
// Numeric ids are rendered without a fractional part.
func (d Directive) OrderID() string {
	return ArgString(d.Args, "order_id")
}

// DirectiveBatch is the inbound request body.
type DirectiveBatch struct {
	Directives []Directive `json:"directives"`
}

// DirectiveResult is the per-directive entry of the response envelope.
type DirectiveResult struct {
	SourceID        string `json:"source_id"`
	SourceDirective string `json:"source_directive"`
	Status          string `json:"status"`
	OrderID         string `json:"order_id,omitempty"`
	Data            any    `json:"data,omitempty"`
	Result          any    `json:"result,omitempty"`
	Error           any    `json:"error,omitempty"`
}

// ResultEnvelope is the response body for a directive batch.
type ResultEnvelope struct {
	Results []DirectiveResult `json:"results"`
}

// Outcome is what every directive handler returns.
// An empty Status is reported as "ok".
type Outcome struct {
	Status  string
	OrderID string
	Data    any
	Result  any
	Error   any
}

// OK returns a successful outcome carrying data.
func OK(data any) Outcome {
	return Outcome{Status: StatusOK, Data: data}
}

// Rejected returns a business-rule rejection with a descriptive status message.
func Rejected(message string) Outcome {
	return Outcome{Status: message}
}

// ArgString reads a string-ish argument. JSON numbers are formatted as integers when whole.
func ArgString(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	return scalarString(v)
}

// ArgList reads a list argument as strings. Elements may be strings, numbers
// or objects carrying "id" or "line_item_id"; anything else is skipped.
// A single scalar is treated as a one-element list.
func ArgList(args map[string]any, key string) []string {
	v, ok := args[key]
	if !ok || v == nil {
		return nil
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []string:
		return append([]string(nil), t...)
	default:
		items = []any{t}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if m, ok := item.(map[string]any); ok {
			s = ArgString(m, "id")
			if s == "" {
				s = ArgString(m, "line_item_id")
			}
		} else {
			s = scalarString(item)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}
