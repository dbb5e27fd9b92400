package domain

import (
	"fmt"
	"strings"

	"github.com/biter777/countries"
)

// Criteria narrows a dataset before derivation. Empty string fields are
// inactive; all active predicates must hold (logical AND).
type Criteria struct {
	CountryCode        string `json:"iso3_country,omitempty"`  // exact match
	Gas                string `json:"gas,omitempty"`           // exact match
	NameContains       string `json:"name_contains,omitempty"` // case-insensitive substring
	RequireCoordinates bool   `json:"require_coordinates"`
}

// Validate rejects country codes that are not ISO 3166-1 alpha-3.
func (c Criteria) Validate() error {
	if c.CountryCode == "" {
		return nil
	}
	if len(c.CountryCode) != 3 || countries.ByName(c.CountryCode) == countries.Unknown {
		return fmt.Errorf("criteria: %q is not an ISO3 country code", c.CountryCode)
	}
	return nil
}

// MatchName reports whether name satisfies the substring predicate.
// A missing name never matches an active predicate.
func (c Criteria) MatchName(name string, missing bool) bool {
	if c.NameContains == "" {
		return true
	}
	if missing {
		return false
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(c.NameContains))
}

// CountryName returns the English short name for an ISO3 code, or the code
// itself when it is unknown.
func CountryName(iso3 string) string {
	c := countries.ByName(iso3)
	if c == countries.Unknown {
		return iso3
	}
	return c.String()
}
