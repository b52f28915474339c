package model

// Address is a postal address as exchanged between the partner system and the storefront.
// Country is an ISO 3166-1 alpha-2 code once normalized.
type Address struct {
	Salutation string `json:"salutation,omitempty"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Suffix     string `json:"suffix,omitempty"`
	Company    string `json:"company,omitempty"`
	Address1   string `json:"address_1"`
	Address2   string `json:"address_2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	Postcode   string `json:"postcode"`
	Country    string `json:"country"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}
