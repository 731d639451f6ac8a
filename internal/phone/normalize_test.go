package phone_test

import (
	"testing"

	"github.com/straye-as/enquiry-api/internal/phone"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		region string
		want   string
	}{
		{"already e164", "+15551234567", "US", "+15551234567"},
		{"empty", "   ", "US", ""},
		{"garbage is kept trimmed", "  not a phone ", "US", "not a phone"},
		{"national format with region", "(650) 253-0000", "US", "+16502530000"},
		{"unallocated range is still formatted", "555-123-4567", "US", "+15551234567"},
		{"punctuated international", "+1 (555) 123-4567", "US", "+15551234567"},
		{"too short is kept", "12", "US", "12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, phone.NormalizeE164(tt.input, tt.region))
		})
	}
}

func TestNormalizer_DefaultRegion(t *testing.T) {
	n := phone.NewNormalizer("")
	assert.Equal(t, "+16502530000", n.Normalize("650-253-0000"))
}
