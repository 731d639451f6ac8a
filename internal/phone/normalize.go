// Package phone normalises phone numbers so contacts can be matched by number.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers written without a country prefix
const DefaultRegion = "US"

// Normalizer formats phone numbers to E.164 for a fixed default region
type Normalizer struct {
	region string
}

// NewNormalizer creates a Normalizer; an empty region falls back to DefaultRegion
func NewNormalizer(region string) *Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	return &Normalizer{region: region}
}

// Normalize formats input to E.164. If parsing fails, it returns the trimmed input.
func (n *Normalizer) Normalize(input string) string {
	return NormalizeE164(input, n.region)
}

// NormalizeE164 formats a phone number to E.164. Numbers only need a possible
// length, not an allocated range. If parsing fails, it returns the trimmed input.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsPossibleNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
