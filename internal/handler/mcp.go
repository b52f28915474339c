// MCP transport for the directive protocol using the official MCP Go SDK.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"orderbridge/internal/metrics"
	"orderbridge/internal/model"
)

// ListDirectivesInput is the input schema for the list_directives tool.
type ListDirectivesInput struct{}

// ListDirectivesOutput names every registered directive kind.
type ListDirectivesOutput struct {
	Directives []string `json:"directives" jsonschema:"registered directive names"`
}

// DispatchDirectivesInput is the input schema for the dispatch_directives tool.
// The token is verified exactly like the REST route's bearer token.
type DispatchDirectivesInput struct {
	Token         string            `json:"token" jsonschema:"bearer token minted with the integration secret"`
	IntegrationID string            `json:"integration_id" jsonschema:"integration id the batch is addressed to"`
	Directives    []model.Directive `json:"directives" jsonschema:"directives to run in order"`
}

// NewMCPServer creates an MCP server with the directive tools registered.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "orderbridge",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Order bridge directive protocol. " +
				"List the supported directives, or dispatch a signed batch against the storefront.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_directives",
		Description: "List the directive names this bridge can execute.",
	}, h.mcpListDirectives)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dispatch_directives",
		Description: "Run a batch of directives. Requires a valid token for the configured integration.",
	}, h.mcpDispatchDirectives)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpListDirectives(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListDirectivesInput,
) (*mcp.CallToolResult, *ListDirectivesOutput, error) {
	return nil, &ListDirectivesOutput{Directives: h.dispatcher.Registry().Names()}, nil
}

func (h *Handler) mcpDispatchDirectives(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input DispatchDirectivesInput,
) (*mcp.CallToolResult, *model.ResultEnvelope, error) {
	if input.Token == "" {
		return nil, nil, h.mcpError(model.NewMalformedPayloadError(model.CodeMissingToken, "missing bearer token"))
	}
	if _, err := h.authenticate(input.IntegrationID, input.Token); err != nil {
		return nil, nil, h.mcpError(err)
	}
	if input.Directives == nil {
		return nil, nil, h.mcpError(model.NewMalformedPayloadError(model.CodeMissingDirectives, "directives array is required"))
	}

	h.logger.InfoContext(ctx, "dispatching directives", "transport", "mcp", "directives", len(input.Directives))

	envelope := h.dispatcher.Dispatch(ctx, h.creds, input.Directives)
	return nil, &envelope, nil
}

// mcpError converts protocol errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		metrics.AuthFailures.WithLabelValues(apiErr.Code).Inc()
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
