package woocommerce

import (
	"context"

	"orderbridge/internal/model"
	"orderbridge/internal/storefront"
)

// scratchCart is a Store API cart session used only to price a partner order.
// Every mutation response carries the recalculated cart, so the last one is
// kept as the current state.
type scratchCart struct {
	client  *Client
	token   string
	nonce   string
	address *WooAddress
	cart    *WooCartResponse
}

// session returns the token and nonce for the next mutation, running the
// nonce preflight on first use.
func (s *scratchCart) session(ctx context.Context) (*nonceInfo, error) {
	if s.nonce == "" {
		info, err := s.client.fetchNonce(ctx, s.token)
		if err != nil {
			return nil, err
		}
		s.nonce, s.token = info.nonce, info.cartToken
	}
	return &nonceInfo{nonce: s.nonce, cartToken: s.token}, nil
}

// run executes the builder's operations. A single operation is sent directly;
// several go through the configured batch strategy.
func (s *scratchCart) run(ctx context.Context, b *BatchBuilder) error {
	if !b.HasOperations() {
		return nil
	}
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}

	batch := b.Build()
	var cart *WooCartResponse
	var next *nonceInfo
	if b.OperationCount() == 1 {
		cart, next, err = s.client.executeCartOperation(ctx, batch.Requests[0], sess)
	} else {
		cart, next, err = s.client.executeBatch(ctx, batch, sess.cartToken, sess.nonce)
	}
	if err != nil {
		return err
	}

	s.nonce = next.nonce
	if cart != nil {
		s.cart = cart
	}
	return nil
}

func (s *scratchCart) AddItem(ctx context.Context, item storefront.CartItem) error {
	if item.Quantity <= 0 {
		return model.NewValidationError("quantity", "must be positive")
	}
	id, err := parseID("product", item.PurchasableID())
	if err != nil {
		return err
	}
	return s.run(ctx, NewBatch().AddItem(id, item.Quantity))
}

func (s *scratchCart) SetShippingAddress(_ context.Context, addr model.Address) error {
	wa := AddressToWoo(addr)
	s.address = &wa
	return nil
}

// CalculateShipping sends the shipping address; the response carries the
// rates for it. An empty cart has no session and nothing to rate.
func (s *scratchCart) CalculateShipping(ctx context.Context) error {
	if s.cart == nil || len(s.cart.Items) == 0 || s.address == nil {
		return nil
	}
	return s.run(ctx, NewBatch().UpdateShippingAddress(s.address))
}

// CalculateTotals is a no-op: the Store API recalculates totals on every
// mutation and the last response is current.
func (s *scratchCart) CalculateTotals(_ context.Context) error {
	return nil
}

func (s *scratchCart) ShippingOptions(_ context.Context) ([]storefront.ShippingRate, error) {
	return ratesFromCart(s.cart), nil
}

func (s *scratchCart) Taxes(_ context.Context) ([]storefront.TaxLine, error) {
	return taxesFromCart(s.cart), nil
}

// Empty removes every line from the cart in one batch.
func (s *scratchCart) Empty(ctx context.Context) error {
	if s.cart == nil || len(s.cart.Items) == 0 {
		return nil
	}
	b := NewBatch()
	for _, item := range s.cart.Items {
		b.RemoveItem(item.Key)
	}
	if err := s.run(ctx, b); err != nil {
		return err
	}
	s.cart = nil
	s.address = nil
	return nil
}
