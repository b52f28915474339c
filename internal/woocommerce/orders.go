package woocommerce

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"orderbridge/internal/model"
	"orderbridge/internal/storefront"
)

// couponDiscountType is the WooCommerce coupon type for a per-product fixed amount.
const couponDiscountType = "fixed_product"

// OrderExistsByExternalRef searches orders for the reference and confirms the
// match on the remote_order_number meta entry. REST v3 has no meta filter, so
// search only narrows the candidates.
func (c *Client) OrderExistsByExternalRef(ctx context.Context, ref string) (bool, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false, nil
	}
	query := url.Values{
		"search":   {ref},
		"status":   {"any"},
		"per_page": {"20"},
	}
	var orders []RestOrder
	if err := c.doREST(ctx, http.MethodGet, "/orders", query, nil, &orders, "order"); err != nil {
		return false, err
	}
	for _, o := range orders {
		if metaString(o.MetaData, storefront.MetaRemoteOrderNumber) == ref {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) CreateOrder(ctx context.Context, params *storefront.OrderParams) (*storefront.Order, error) {
	if params == nil || len(params.Lines) == 0 {
		return nil, model.NewValidationError("order", "no line items")
	}
	body, err := orderRequest(params)
	if err != nil {
		return nil, err
	}

	var created RestOrder
	if err := c.doREST(ctx, http.MethodPost, "/orders", nil, body, &created, "order"); err != nil {
		return nil, err
	}
	return &storefront.Order{ID: strconv.Itoa(created.ID), Key: created.OrderKey}, nil
}

// FindOrCreateCustomer looks the customer up by email across all roles and
// registers a new account when none exists.
func (c *Client) FindOrCreateCustomer(ctx context.Context, cust storefront.Customer) (*storefront.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(cust.Email))
	if email == "" {
		return nil, model.NewValidationError("customer", "email is required")
	}

	var found []RestCustomer
	query := url.Values{"email": {email}, "role": {"all"}}
	if err := c.doREST(ctx, http.MethodGet, "/customers", query, nil, &found, "customer"); err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return customerFromREST(&found[0]), nil
	}

	in := RestCustomer{
		Email:     email,
		FirstName: cust.FirstName,
		LastName:  cust.LastName,
		Billing: WooAddress{
			FirstName: cust.FirstName,
			LastName:  cust.LastName,
			Email:     email,
			Phone:     cust.Phone,
		},
	}
	var created RestCustomer
	if err := c.doREST(ctx, http.MethodPost, "/customers", nil, in, &created, "customer"); err != nil {
		return nil, err
	}
	return customerFromREST(&created), nil
}

// CouponByCode looks a coupon up by its code.
func (c *Client) CouponByCode(ctx context.Context, code string) (*storefront.Coupon, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil, model.NewValidationError("coupon", "code is required")
	}

	var found []RestCoupon
	if err := c.doREST(ctx, http.MethodGet, "/coupons", url.Values{"code": {code}}, nil, &found, "coupon"); err != nil {
		return nil, err
	}
	for _, rc := range found {
		if strings.EqualFold(rc.Code, code) {
			return couponFromREST(&rc), nil
		}
	}
	return nil, model.NewNotFoundError("coupon")
}

// CreateCoupon creates a fixed-amount per-product coupon.
func (c *Client) CreateCoupon(ctx context.Context, coupon storefront.Coupon) (*storefront.Coupon, error) {
	code := strings.ToLower(strings.TrimSpace(coupon.Code))
	if code == "" {
		return nil, model.NewValidationError("coupon", "code is required")
	}

	in := RestCoupon{
		Code:         code,
		DiscountType: couponDiscountType,
		Amount:       coupon.Amount,
		Description:  coupon.Description,
		UsageLimit:   coupon.UsageLimit,
	}
	for _, id := range coupon.ProductIDs {
		n, err := parseID("coupon product", id)
		if err != nil {
			return nil, err
		}
		in.ProductIDs = append(in.ProductIDs, n)
	}

	var created RestCoupon
	if err := c.doREST(ctx, http.MethodPost, "/coupons", nil, in, &created, "coupon"); err != nil {
		return nil, err
	}

	out := coupon
	out.ID = strconv.Itoa(created.ID)
	out.Code = code
	return &out, nil
}

func couponFromREST(rc *RestCoupon) *storefront.Coupon {
	out := &storefront.Coupon{
		ID:          strconv.Itoa(rc.ID),
		Code:        strings.ToLower(rc.Code),
		Amount:      rc.Amount,
		Description: rc.Description,
		UsageLimit:  rc.UsageLimit,
	}
	for _, id := range rc.ProductIDs {
		out.ProductIDs = append(out.ProductIDs, strconv.Itoa(id))
	}
	return out
}

func customerFromREST(rc *RestCustomer) *storefront.Customer {
	return &storefront.Customer{
		ID:        strconv.Itoa(rc.ID),
		Email:     rc.Email,
		FirstName: rc.FirstName,
		LastName:  rc.LastName,
		Phone:     rc.Billing.Phone,
	}
}
