package woocommerce

import (
	"encoding/json"
	"net/http"
)

// =============================================================================
// BATCH BUILDER
// =============================================================================
//
// The Store API accepts several cart operations in one POST /wc/store/v1/batch
// request. The scratch cart uses it to clear every line in a single round trip
// once a quote has been read.
//
// Operations execute sequentially in order. Each carries its own Cart-Token
// and Nonce headers; the batch endpoint does not propagate the parent's.
//
//	{
//	  "requests": [
//	    {"path": "/wc/store/v1/cart/remove-item", "method": "POST", "body": {"key": "abc"}},
//	    {"path": "/wc/store/v1/cart/remove-item", "method": "POST", "body": {"key": "def"}}
//	  ]
//	}
//
// =============================================================================

// BatchBuilder constructs batch requests for WooCommerce Store API.
type BatchBuilder struct {
	operations []WooBatchOperation
}

// NewBatch creates a new batch builder.
func NewBatch() *BatchBuilder {
	return &BatchBuilder{
		operations: make([]WooBatchOperation, 0),
	}
}

func (b *BatchBuilder) add(path string, body any) *BatchBuilder {
	bodyJSON, _ := json.Marshal(body)
	b.operations = append(b.operations, WooBatchOperation{
		Path:   storeRoutePrefix + path,
		Method: http.MethodPost,
		Body:   bodyJSON,
	})
	return b
}

// AddItem adds a product or variation to the cart.
// path: /wc/store/v1/cart/add-item
func (b *BatchBuilder) AddItem(productID, quantity int) *BatchBuilder {
	return b.add("/cart/add-item", map[string]int{
		"id":       productID,
		"quantity": quantity,
	})
}

// UpdateShippingAddress sets the destination used for rate calculation.
// WooCommerce requires a billing country too, so the shipping address is
// mirrored into billing_address.
// path: /wc/store/v1/cart/update-customer
func (b *BatchBuilder) UpdateShippingAddress(addr *WooAddress) *BatchBuilder {
	if addr == nil {
		return b
	}
	return b.add("/cart/update-customer", map[string]*WooAddress{
		"shipping_address": addr,
		"billing_address":  addr,
	})
}

// RemoveItem removes an item from the cart by its cart item key.
// path: /wc/store/v1/cart/remove-item
func (b *BatchBuilder) RemoveItem(cartItemKey string) *BatchBuilder {
	if cartItemKey == "" {
		return b
	}
	return b.add("/cart/remove-item", map[string]string{"key": cartItemKey})
}

// Build returns the batch request ready for execution.
// Returns nil if no operations were added.
func (b *BatchBuilder) Build() *WooBatchRequest {
	if len(b.operations) == 0 {
		return nil
	}
	return &WooBatchRequest{
		Requests: b.operations,
	}
}

// HasOperations returns true if any operations have been added.
func (b *BatchBuilder) HasOperations() bool {
	return len(b.operations) > 0
}

// OperationCount returns the number of operations in the batch.
func (b *BatchBuilder) OperationCount() int {
	return len(b.operations)
}

// InjectHeaders adds the given headers to all operations in the batch.
func (b *WooBatchRequest) InjectHeaders(headers map[string]string) {
	for i := range b.Requests {
		if b.Requests[i].Headers == nil {
			b.Requests[i].Headers = make(map[string]string)
		}
		for k, v := range headers {
			b.Requests[i].Headers[k] = v
		}
	}
}
