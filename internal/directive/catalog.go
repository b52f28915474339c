package directive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"orderbridge/internal/model"
	"orderbridge/internal/remote"
	"orderbridge/internal/storefront"
)

type importProduct struct {
	remote remote.API
	store  storefront.Storefront
}

func (h *importProduct) Name() string { return NameImportProductFromURL }

// Handle resolves a storefront URL to a product and offers it to the partner
// catalog. Products that cannot be sold through the partner are rejected
// with a descriptive status.
func (h *importProduct) Handle(ctx context.Context, req *Request) (model.Outcome, error) {
	url := strings.TrimSpace(req.Arg("url"))
	if url == "" {
		url = strings.TrimSpace(req.Arg("product_url"))
	}
	if url == "" {
		return model.Rejected("Product URL is blank"), nil
	}

	p, err := h.store.ProductByURL(ctx, url)
	if errors.Is(err, model.ErrNotFound) {
		return model.Rejected(fmt.Sprintf("No product found at %s", url)), nil
	}
	if err != nil {
		return model.Outcome{}, err
	}
	if p.Type == storefront.TypeVariation && p.ParentID != "" {
		if p, err = h.store.Product(ctx, p.ParentID); err != nil {
			return model.Outcome{}, err
		}
	}

	if msg := importable(p); msg != "" {
		return model.Rejected(msg), nil
	}

	var variations []storefront.Variation
	if p.Type == storefront.TypeVariable {
		if variations, err = h.store.Variations(ctx, p.ID); err != nil {
			return model.Outcome{}, err
		}
	}

	input := productInput(p, variations, url)
	id, err := h.remote.ImportProduct(ctx, input)
	if err != nil {
		return model.Outcome{}, err
	}
	return model.Outcome{
		Status: model.StatusOK,
		Data:   map[string]any{"source_id": p.ID, "name": p.Name},
		Result: id,
	}, nil
}

// importable returns why p cannot be imported, or "".
func importable(p *storefront.Product) string {
	switch {
	case p.Status != storefront.StatusPublished:
		return fmt.Sprintf("Product %q is not published", p.Name)
	case p.Downloadable:
		return fmt.Sprintf("Product %q is downloadable; downloadable products are not supported", p.Name)
	case p.Type != storefront.TypeSimple && p.Type != storefront.TypeVariable:
		return fmt.Sprintf("Product %q has unsupported type %q", p.Name, p.Type)
	}
	return ""
}

// productInput assembles the partner product description. A variable
// product is priced at its cheapest variation.
func productInput(p *storefront.Product, variations []storefront.Variation, url string) remote.ProductInput {
	in := remote.ProductInput{
		SourceID:       p.ID,
		Name:           p.Name,
		Description:    p.Description,
		URL:            url,
		SKU:            p.SKU,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice(),
		Available:      p.InStock,
		Images:         append([]string{}, p.Images...),
		Options:        []remote.ProductOption{},
		Variants:       []remote.ProductVariant{},
	}
	if p.Permalink != "" {
		in.URL = p.Permalink
	}

	for _, a := range p.Attributes {
		in.Options = append(in.Options, remote.ProductOption{Name: a.Name, Values: append([]string{}, a.Options...)})
	}

	for i, v := range variations {
		variant := remote.ProductVariant{
			SourceID:  v.ID,
			SKU:       v.SKU,
			Price:     v.Price,
			Available: v.InStock,
			Image:     v.Image,
			Options:   []remote.OptionValue{},
		}
		if v.RegularPrice > v.Price {
			variant.CompareAtPrice = v.RegularPrice
		}
		for _, o := range v.Options {
			variant.Options = append(variant.Options, remote.OptionValue{Name: o.Name, Value: o.Value})
		}
		in.Variants = append(in.Variants, variant)

		if i == 0 || v.Price < in.Price {
			in.Price = v.Price
			in.CompareAtPrice = variant.CompareAtPrice
		}
		if v.InStock {
			in.Available = true
		}
	}
	return in
}

type productInformationSync struct {
	store storefront.Storefront
}

func (h *productInformationSync) Name() string { return NameProductInformationSync }

// ProductPrice is one entry of a product_information_sync answer. Prices are minor units.
type ProductPrice struct {
	ID             string `json:"id"`
	Price          int64  `json:"price"`
	CompareAtPrice int64  `json:"compare_at_price"`
	Available      bool   `json:"available"`
}

// Handle looks up current prices for the product or variation ids in args.ids.
// Ids that no longer resolve are listed under skipped.
func (h *productInformationSync) Handle(ctx context.Context, req *Request) (model.Outcome, error) {
	ids := model.ArgList(req.Directive.Args, "ids")
	if len(ids) == 0 {
		ids = model.ArgList(req.Directive.Args, "product_ids")
	}

	products := make([]ProductPrice, 0, len(ids))
	skipped := []string{}
	for _, id := range ids {
		p, err := h.store.Product(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			skipped = append(skipped, id)
			continue
		}
		if err != nil {
			return model.Outcome{}, err
		}
		products = append(products, ProductPrice{
			ID:             id,
			Price:          p.Price,
			CompareAtPrice: p.CompareAtPrice(),
			Available:      p.InStock,
		})
	}
	return model.OK(map[string]any{"products": products, "skipped": skipped}), nil
}
