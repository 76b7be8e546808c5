package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "API Gateway", "api-gateway"},
		{"accents", "Café Database", "cafe-database"},
		{"punctuation collapses", "API -- Gateway!!", "api-gateway"},
		{"leading and trailing junk", "  API  ", "api"},
		{"digits", "Zone 51", "zone-51"},
		{"already a slug", "payments-eu-west", "payments-eu-west"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Make(tt.in))
		})
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("api-gateway"))
	assert.False(t, IsValid("API Gateway"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("-api"))
}
