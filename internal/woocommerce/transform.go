package woocommerce

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"orderbridge/internal/model"
	"orderbridge/internal/storefront"
)

// stockOut is the REST and Store API stock status of an unavailable product.
const stockOut = "outofstock"

// AddressToWoo converts an address to WooCommerce format.
func AddressToWoo(addr model.Address) WooAddress {
	return WooAddress{
		FirstName: addr.FirstName,
		LastName:  addr.LastName,
		Company:   addr.Company,
		Address1:  addr.Address1,
		Address2:  addr.Address2,
		City:      addr.City,
		State:     addr.State,
		Postcode:  addr.Postcode,
		Country:   addr.Country,
		Email:     addr.Email,
		Phone:     addr.Phone,
	}
}

// ratesFromCart flattens the shipping packages of a cart into rates.
// Store API prices are already minor units.
func ratesFromCart(cart *WooCartResponse) []storefront.ShippingRate {
	if cart == nil {
		return nil
	}
	var rates []storefront.ShippingRate
	for _, pkg := range cart.ShippingRates {
		for _, r := range pkg.ShippingRates {
			method, instance := splitRateID(r.RateID)
			if r.MethodID != "" {
				method = r.MethodID
			}
			if r.InstanceID > 0 {
				instance = strconv.Itoa(r.InstanceID)
			}
			rates = append(rates, storefront.ShippingRate{
				MethodID:   method,
				InstanceID: instance,
				Label:      r.Name,
				Amount:     model.ParseMinorUnits(r.Price),
			})
		}
	}
	return rates
}

// splitRateID splits a Store API rate id ("flat_rate:3") into method and instance.
func splitRateID(rateID string) (string, string) {
	method, instance, _ := strings.Cut(rateID, ":")
	return method, instance
}

// taxesFromCart returns the cart's tax lines. Stores that do not itemize
// taxes report a single line carrying total_tax.
func taxesFromCart(cart *WooCartResponse) []storefront.TaxLine {
	if cart == nil {
		return nil
	}
	var lines []storefront.TaxLine
	for _, t := range cart.Totals.TaxLines {
		lines = append(lines, storefront.TaxLine{Label: t.Name, Amount: model.ParseMinorUnits(t.Price)})
	}
	if len(lines) == 0 {
		if total := model.ParseMinorUnits(cart.Totals.TotalTax); total != 0 {
			lines = append(lines, storefront.TaxLine{Label: "Tax", Amount: total})
		}
	}
	return lines
}

// productFromREST converts a REST v3 product. REST prices are decimal strings.
func productFromREST(p *RestProduct) *storefront.Product {
	out := &storefront.Product{
		ID:           strconv.Itoa(p.ID),
		Name:         p.Name,
		Description:  p.Description,
		Type:         p.Type,
		Status:       p.Status,
		Downloadable: p.Downloadable,
		SKU:          p.SKU,
		Permalink:    p.Permalink,
		Price:        model.ParseCents(p.Price),
		RegularPrice: model.ParseCents(p.RegularPrice),
		InStock:      p.StockStatus != stockOut,
		Images:       make([]string, 0, len(p.Images)),
	}
	if p.ParentID > 0 {
		out.ParentID = strconv.Itoa(p.ParentID)
	}
	for _, img := range p.Images {
		out.Images = append(out.Images, img.Src)
	}
	for _, a := range p.Attributes {
		out.Attributes = append(out.Attributes, storefront.Attribute{Name: a.Name, Options: a.Options})
	}
	for _, id := range p.Variations {
		out.VariationIDs = append(out.VariationIDs, strconv.Itoa(id))
	}
	return out
}

// variationFromREST converts a REST v3 variation of productID.
func variationFromREST(productID string, v *RestVariation) storefront.Variation {
	out := storefront.Variation{
		ID:           strconv.Itoa(v.ID),
		ProductID:    productID,
		SKU:          v.SKU,
		Price:        model.ParseCents(v.Price),
		RegularPrice: model.ParseCents(v.RegularPrice),
		InStock:      v.StockStatus != stockOut,
	}
	if v.Image != nil {
		out.Image = v.Image.Src
	}
	for _, a := range v.Attributes {
		out.Options = append(out.Options, storefront.SelectedOption{Name: a.Name, Value: a.Option})
	}
	return out
}

// parseID converts a storefront id to the integer WooCommerce expects.
func parseID(field, id string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || n <= 0 {
		return 0, model.NewValidationError(field, fmt.Sprintf("%q is not a WooCommerce id", id))
	}
	return n, nil
}

// optionalID is parseID for fields that may be empty.
func optionalID(field, id string) (int, error) {
	if strings.TrimSpace(id) == "" {
		return 0, nil
	}
	return parseID(field, id)
}

// orderRequest builds the REST order body. Lines whose product no longer
// resolves are sent without a product id and keep their name and totals.
func orderRequest(params *storefront.OrderParams) (*RestOrderRequest, error) {
	customerID, err := optionalID("customer_id", params.CustomerID)
	if err != nil {
		return nil, err
	}

	req := &RestOrderRequest{
		CustomerID:         customerID,
		Status:             params.Status,
		Currency:           params.Currency,
		Billing:            AddressToWoo(params.Billing),
		Shipping:           AddressToWoo(params.Shipping),
		LineItems:          make([]RestOrderLine, 0, len(params.Lines)),
		PaymentMethod:      params.PaymentMethod,
		PaymentMethodTitle: params.PaymentTitle,
		TransactionID:      params.TransactionID,
	}
	// REST shipping addresses carry no email.
	req.Shipping.Email = ""

	for _, l := range params.Lines {
		productID, err := optionalID("product_id", l.ProductID)
		if err != nil {
			return nil, err
		}
		variationID, err := optionalID("variation_id", l.VariantID)
		if err != nil {
			return nil, err
		}
		req.LineItems = append(req.LineItems, RestOrderLine{
			ProductID:   productID,
			VariationID: variationID,
			Name:        l.Name,
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal,
			Total:       l.Total,
		})
	}

	for _, s := range params.ShippingLines {
		req.ShippingLines = append(req.ShippingLines, RestShippingLine{
			MethodID:    s.MethodID,
			InstanceID:  s.InstanceID,
			MethodTitle: s.MethodTitle,
			Total:       s.Total,
		})
	}
	for _, code := range params.CouponCodes {
		req.CouponLines = append(req.CouponLines, RestCouponLine{Code: code})
	}

	keys := make([]string, 0, len(params.Metadata))
	for k := range params.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		req.MetaData = append(req.MetaData, RestMeta{Key: k, Value: params.Metadata[k]})
	}
	return req, nil
}

// metaString returns the string value of key in meta, or "".
func metaString(meta []RestMeta, key string) string {
	for _, m := range meta {
		if m.Key != key {
			continue
		}
		switch v := m.Value.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
