package importer

import (
	"strings"

	"orderbridge/internal/model"
	"orderbridge/internal/quote"
	"orderbridge/internal/remote"
)

// ImportedOrder is the partner order reduced to what a native order needs.
// Amounts are minor units.
type ImportedOrder struct {
	RemoteID    string
	Name        string
	Products    []Product
	Order       Totals
	Customer    Customer
	Billing     model.Address
	Shipping    model.Address
	Transaction Transaction
}

// Product is one purchased line.
type Product struct {
	LineItemID string
	ProductID  string
	VariantID  string
	Title      string
	Quantity   int
	UnitPrice  int64
}

// Totals are the order-level amounts and the chosen shipping rate handle.
type Totals struct {
	Subtotal       int64
	Shipping       int64
	Tax            int64
	Total          int64
	Status         string
	Currency       string
	ShippingHandle string
}

// Customer is the buyer.
type Customer struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// Transaction is the partner payment reference.
type Transaction struct {
	ID   string
	Name string
}

// Normalize projects a partner order payload into an ImportedOrder.
func Normalize(raw *remote.OrderPayload) ImportedOrder {
	if raw == nil {
		return ImportedOrder{}
	}

	order := ImportedOrder{
		RemoteID: raw.ID,
		Name:     raw.Name,
		Order: Totals{
			Subtotal:       raw.Subtotal,
			Shipping:       raw.ShippingTotal,
			Tax:            raw.TaxTotal,
			Total:          raw.Total,
			Status:         raw.Status,
			Currency:       strings.ToUpper(raw.Currency),
			ShippingHandle: raw.ShippingHandle,
		},
		Customer: Customer{
			Email:     strings.TrimSpace(raw.Customer.Email),
			FirstName: raw.Customer.FirstName,
			LastName:  raw.Customer.LastName,
			Phone:     raw.Customer.Phone,
		},
	}

	for _, li := range raw.LineItems {
		order.Products = append(order.Products, Product{
			LineItemID: li.ID,
			ProductID:  li.ProductID,
			VariantID:  li.VariantID,
			Title:      li.Title,
			Quantity:   li.Quantity,
			UnitPrice:  li.UnitPrice,
		})
	}

	if raw.Transaction != nil {
		order.Transaction = Transaction{ID: raw.Transaction.ID, Name: raw.Transaction.Name}
	}

	order.Shipping = convertAddress(raw.ShippingAddress, order.Customer)
	if raw.BillingAddress != nil {
		order.Billing = convertAddress(raw.BillingAddress, order.Customer)
	} else {
		order.Billing = order.Shipping
	}
	if order.Billing.Email == "" {
		order.Billing.Email = order.Customer.Email
	}
	if order.Billing.Phone == "" {
		order.Billing.Phone = order.Customer.Phone
	}

	return order
}

func convertAddress(a *remote.Address, c Customer) model.Address {
	if a == nil {
		return model.Address{FirstName: c.FirstName, LastName: c.LastName}
	}

	addr := model.Address{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Company:   a.Company,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		State:     a.ProvinceCode,
		Postcode:  a.Zip,
		Country:   quote.NormalizeCountry(a.CountryCode, a.Country),
		Email:     a.Email,
		Phone:     a.Phone,
	}
	if addr.State == "" {
		addr.State = a.Province
	}
	if strings.TrimSpace(a.Name) != "" {
		n := SplitName(a.Name)
		addr.Salutation, addr.FirstName, addr.LastName, addr.Suffix = n.Salutation, n.First, n.Last, n.Suffix
	}
	return addr
}

// Name is a full name split into its parts.
type Name struct {
	Salutation string
	First      string
	Last       string
	Suffix     string
}

// SplitName splits a full name. A leading token containing "." is a salutation
// ("Dr.") and a trailing one a suffix ("Jr."); the first remaining token is the
// first name and everything after it is the last name.
func SplitName(full string) Name {
	tokens := strings.Fields(full)
	var n Name

	if len(tokens) > 1 && strings.Contains(tokens[0], ".") {
		n.Salutation = tokens[0]
		tokens = tokens[1:]
	}
	if len(tokens) > 1 && strings.Contains(tokens[len(tokens)-1], ".") {
		n.Suffix = tokens[len(tokens)-1]
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) == 0 {
		return n
	}
	n.First = tokens[0]
	n.Last = strings.Join(tokens[1:], " ")
	return n
}
