package woocommerce

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"orderbridge/internal/model"
	"orderbridge/internal/storefront"
)

// idQueryKeys are the query parameters a WooCommerce product link may carry its id in.
var idQueryKeys = []string{"p", "product_id", "variation_id", "add-to-cart"}

// Product returns a product or variation. REST v3 serves variations from the
// products endpoint with type "variation" and their parent_id.
func (c *Client) Product(ctx context.Context, id string) (*storefront.Product, error) {
	n, err := parseID("product", id)
	if err != nil {
		return nil, model.NewNotFoundError("product")
	}
	var p RestProduct
	if err := c.doREST(ctx, http.MethodGet, "/products/"+strconv.Itoa(n), nil, nil, &p, "product"); err != nil {
		return nil, err
	}
	return productFromREST(&p), nil
}

func (c *Client) IsInStock(ctx context.Context, productID string) (bool, error) {
	p, err := c.Product(ctx, productID)
	if err != nil {
		return false, err
	}
	return p.InStock, nil
}

// ProductByURL resolves id-bearing links (?p=, ?product_id=, ...) by id and
// pretty permalinks by their last path segment as the product slug.
func (c *Client) ProductByURL(ctx context.Context, rawURL string) (*storefront.Product, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, model.NewNotFoundError("product")
	}

	q := u.Query()
	for _, key := range idQueryKeys {
		if id := q.Get(key); id != "" {
			return c.Product(ctx, id)
		}
	}

	slug := path.Base(strings.TrimRight(u.Path, "/"))
	if slug == "" || slug == "." || slug == "/" {
		return nil, model.NewNotFoundError("product")
	}

	var found []RestProduct
	query := url.Values{"slug": {slug}}
	if err := c.doREST(ctx, http.MethodGet, "/products", query, nil, &found, "product"); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, model.NewNotFoundError("product")
	}
	return productFromREST(&found[0]), nil
}

func (c *Client) Variations(ctx context.Context, productID string) ([]storefront.Variation, error) {
	n, err := parseID("product", productID)
	if err != nil {
		return nil, err
	}
	var raw []RestVariation
	query := url.Values{"per_page": {"100"}}
	if err := c.doREST(ctx, http.MethodGet, "/products/"+strconv.Itoa(n)+"/variations", query, nil, &raw, "product"); err != nil {
		return nil, err
	}
	out := make([]storefront.Variation, 0, len(raw))
	for i := range raw {
		out = append(out, variationFromREST(productID, &raw[i]))
	}
	return out, nil
}
