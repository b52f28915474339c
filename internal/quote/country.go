package quote

import "strings"

// countryCodes maps common country names and alpha-3 codes to ISO 3166-1 alpha-2.
var countryCodes = map[string]string{
	"united states":            "US",
	"united states of america": "US",
	"usa":                      "US",
	"america":                  "US",
	"canada":                   "CA",
	"can":                      "CA",
	"united kingdom":           "GB",
	"great britain":            "GB",
	"uk":                       "GB",
	"gbr":                      "GB",
	"england":                  "GB",
	"scotland":                 "GB",
	"wales":                    "GB",
	"northern ireland":         "GB",
	"australia":                "AU",
	"aus":                      "AU",
	"mexico":                   "MX",
	"méxico":                   "MX",
	"mex":                      "MX",
	"germany":                  "DE",
	"deutschland":              "DE",
	"deu":                      "DE",
	"france":                   "FR",
	"fra":                      "FR",
	"spain":                    "ES",
	"italy":                    "IT",
	"netherlands":              "NL",
	"the netherlands":          "NL",
	"holland":                  "NL",
	"ireland":                  "IE",
	"new zealand":              "NZ",
	"japan":                    "JP",
	"china":                    "CN",
	"india":                    "IN",
	"brazil":                   "BR",
	"sweden":                   "SE",
	"norway":                   "NO",
	"denmark":                  "DK",
	"finland":                  "FI",
	"switzerland":              "CH",
	"austria":                  "AT",
	"belgium":                  "BE",
	"portugal":                 "PT",
	"poland":                   "PL",
	"puerto rico":              "PR",
	"south africa":             "ZA",
	"singapore":                "SG",
	"hong kong":                "HK",
	"south korea":              "KR",
	"korea":                    "KR",
}

// NormalizeCountry returns an ISO alpha-2 country code for a partner address.
// A two-letter code is kept as supplied; otherwise the code and then the name
// are looked up. Unknown values are returned trimmed so the storefront can
// still reject them.
func NormalizeCountry(code, name string) string {
	for _, candidate := range []string{code, name} {
		key := countryKey(candidate)
		if key == "" {
			continue
		}
		if mapped, ok := countryCodes[key]; ok {
			return mapped
		}
		if len(key) == 2 && isLetters(key) {
			return strings.ToUpper(key)
		}
	}
	if c := strings.TrimSpace(code); c != "" {
		return c
	}
	return strings.TrimSpace(name)
}

func countryKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ".", "")
	return strings.Join(strings.Fields(s), " ")
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
