package constants

import "strings"

// Region codes persisted on invoice headers.
const (
	RegionNA      = "NA"
	RegionEMEA    = "EMEA"
	RegionAPAC    = "APAC"
	RegionLATAM   = "LATAM"
	RegionUnknown = "UNKNOWN"
)

var naCountries = set("US", "CA", "MX")

var emeaCountries = set(
	// Europe
	"GB", "DE", "FR", "IT", "ES", "NL", "BE", "CH", "AT", "SE", "NO", "DK",
	"FI", "IE", "PT", "GR", "PL", "CZ", "HU", "SK", "SI", "HR", "BG", "RO",
	"EE", "LV", "LT", "CY", "MT", "LU", "IS", "LI", "MC", "SM", "VA", "AD",
	"AL", "BA", "MK", "ME", "RS", "XK", "MD", "UA", "BY", "RU",
	// Middle East
	"AE", "SA", "QA", "KW", "BH", "OM", "JO", "LB", "SY", "IQ", "IR", "IL", "PS", "TR",
	// Africa
	"ZA", "EG", "NG", "KE", "MA", "TN", "DZ", "LY", "SD", "ET", "UG", "TZ", "GH", "MZ", "MG",
	"CM", "CI", "NE", "BF", "ML", "MW", "ZM", "ZW", "BW", "NA", "SZ", "LS", "GA", "GQ", "ST",
	"CV", "GM", "GW", "SL", "LR", "GN", "SN", "MR", "TD", "CF", "CG", "CD", "AO", "DJ", "SO", "ER",
)

var apacCountries = set(
	// Asia
	"CN", "JP", "IN", "KR", "TH", "SG", "MY", "ID", "PH", "VN", "TW", "HK", "MO",
	"KH", "LA", "MM", "BN", "TL", "MN", "KP", "AF", "PK", "BD", "LK", "MV", "NP", "BT",
	"KZ", "KG", "TJ", "TM", "UZ", "AM", "AZ", "GE",
	// Pacific
	"AU", "NZ", "PG", "FJ", "SB", "VU", "NC", "PF", "WS", "TO", "KI", "TV", "NR", "PW",
	"FM", "MH", "CK", "NU", "TK", "AS", "GU", "MP", "VI", "PR",
)

// Mexico is grouped under NA, not LATAM.
var latamCountries = set(
	"BR", "AR", "CL", "CO", "PE", "VE", "EC", "BO", "UY", "PY", "GY", "SR", "GF",
	"GT", "BZ", "SV", "HN", "NI", "CR", "PA", "CU", "JM", "HT", "DO", "TT", "BB",
	"GD", "VC", "LC", "DM", "AG", "KN", "BS", "BM",
)

func set(codes ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}

// RegionForCountry maps an ISO 3166-1 alpha-2 country code to its region.
// Unrecognized or empty codes map to UNKNOWN.
func RegionForCountry(countryCode string) string {
	if countryCode == "" {
		return RegionUnknown
	}
	cc := strings.ToUpper(strings.TrimSpace(countryCode))
	switch {
	case contains(naCountries, cc):
		return RegionNA
	case contains(emeaCountries, cc):
		return RegionEMEA
	case contains(apacCountries, cc):
		return RegionAPAC
	case contains(latamCountries, cc):
		return RegionLATAM
	default:
		return RegionUnknown
	}
}

func contains(m map[string]struct{}, code string) bool {
	_, ok := m[code]
	return ok
}
