package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		key   string
		value any
		want  FieldType
	}{
		{"subscribed", true, TypeBoolean},
		{"emailPhone", true, TypeBoolean},
		{"ContactEmail", "a@b.co", TypeEmail},
		{"email_phone", "x", TypeEmail},
		{"mobilePhone", "8745638765", TypePhone},
		{"TelNumber", "8745638765", TypePhone},
		{"loanAmount", 1000.0, TypeCurrency},
		{"Budget", "500", TypeCurrency},
		{"unitCost", 12.0, TypeCurrency},
		{"listPrice", 12.0, TypeCurrency},
		{"startDate", "tomorrow", TypeDate},
		{"updated", "2026-12-31", TypeDate},
		{"updated", "2026-12-31T00:00:00Z", TypeText},
		{"priceDate", "2026-12-31", TypeCurrency},
		{"name", "Ada", TypeText},
		{"count", 3.0, TypeText},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(tt.key, tt.value))
		})
	}
}
