// Package reconcile compares partner order lines against live storefront prices.
// The importer uses the diff to decide which lines need a markdown coupon so the
// native order totals match what the buyer paid on the partner side.
package reconcile

// RemoteLine is a partner order line. UnitPrice is in minor units.
type RemoteLine struct {
	LineItemID string
	ProductID  string
	VariantID  string
	Quantity   int
	UnitPrice  int64
}

// PriceAdjustment is a line whose partner price differs from the local price.
type PriceAdjustment struct {
	Line       RemoteLine
	LocalUnit  int64 // live storefront unit price
	RemoteUnit int64 // unit price the buyer paid
}

// Discount is the total markdown across the line's quantity (positive when
// the buyer paid less than the local price).
func (a PriceAdjustment) Discount() int64 {
	return (a.LocalUnit - a.RemoteUnit) * int64(a.Line.Quantity)
}

// PriceDiff describes how partner lines deviate from the local catalog.
// Slices keep the input line order.
type PriceDiff struct {
	Markdowns []PriceAdjustment // buyer paid less; reconciled with a coupon
	Markups   []PriceAdjustment // buyer paid more; line is priced at the remote price
	Missing   []RemoteLine      // no local price (product gone)
}

// IsEmpty returns true if every line matches its local price.
func (d *PriceDiff) IsEmpty() bool {
	return len(d.Markdowns) == 0 && len(d.Markups) == 0 && len(d.Missing) == 0
}

// TotalDiscount sums all markdowns in minor units.
func (d *PriceDiff) TotalDiscount() int64 {
	var total int64
	for _, m := range d.Markdowns {
		total += m.Discount()
	}
	return total
}

// DiffPrices compares each remote line with the local unit price found under
// ItemKey(productID, variantID). A variation price is preferred; the parent
// product price is the fallback.
func DiffPrices(lines []RemoteLine, local map[string]int64) *PriceDiff {
	diff := &PriceDiff{}
	for _, line := range lines {
		price, ok := local[ItemKey(line.ProductID, line.VariantID)]
		if !ok && line.VariantID != "" {
			price, ok = local[ItemKey(line.ProductID, "")]
		}
		if !ok {
			diff.Missing = append(diff.Missing, line)
			continue
		}

		adj := PriceAdjustment{Line: line, LocalUnit: price, RemoteUnit: line.UnitPrice}
		switch {
		case line.UnitPrice < price:
			diff.Markdowns = append(diff.Markdowns, adj)
		case line.UnitPrice > price:
			diff.Markups = append(diff.Markups, adj)
		}
	}
	return diff
}

// ItemKey creates a composite key for matching items.
// Uses ProductID alone if no variant, or ProductID:VariantID if variant present.
func ItemKey(productID, variantID string) string {
	if variantID == "" {
		return productID
	}
	return productID + ":" + variantID
}
