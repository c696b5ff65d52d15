package domain

import (
	"fmt"
	"strings"
)

// Country identifies one of the monitored countries
type Country string

const (
	CountryBenin       Country = "benin"
	CountrySierraLeone Country = "sierraleone"
	CountryTogo        Country = "togo"
)

// AllCountries lists the countries in report order
var AllCountries = []Country{CountryBenin, CountrySierraLeone, CountryTogo}

var countryNames = map[Country]string{
	CountryBenin:       "Benin",
	CountrySierraLeone: "Sierra Leone",
	CountryTogo:        "Togo",
}

// DisplayName returns the human-readable country name
func (c Country) DisplayName() string {
	if name, ok := countryNames[c]; ok {
		return name
	}
	return string(c)
}

// Valid reports whether c is a known country
func (c Country) Valid() bool {
	_, ok := countryNames[c]
	return ok
}

// Order returns the position of c in report order, or len(AllCountries) if unknown
func (c Country) Order() int {
	for i, known := range AllCountries {
		if known == c {
			return i
		}
	}
	return len(AllCountries)
}

// ParseCountry accepts a slug ("sierraleone") or a display name ("Sierra Leone").
// Matching ignores case, spaces, underscores and hyphens.
func ParseCountry(s string) (Country, error) {
	key := normalizeKey(s)
	for c, name := range countryNames {
		if key == string(c) || key == normalizeKey(name) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown country %q", s)
}

// ParseCountries parses a list of country names, dropping duplicates
func ParseCountries(values []string) ([]Country, error) {
	seen := make(map[Country]bool, len(values))
	out := make([]Country, 0, len(values))
	for _, v := range values {
		c, err := ParseCountry(v)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}
