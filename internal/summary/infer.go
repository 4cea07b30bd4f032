package summary

import (
	"regexp"
	"strings"
)

// isoDate matches a bare calendar date such as 2026-12-31.
var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var currencyKeyHints = []string{"amount", "budget", "cost", "price"}

// InferType picks a display type from the field key and raw value. It only
// applies when the label does not configure a type. First match wins.
func InferType(key string, v any) FieldType {
	if _, ok := v.(bool); ok {
		return TypeBoolean
	}
	k := strings.ToLower(key)
	switch {
	case strings.Contains(k, "email"):
		return TypeEmail
	case strings.Contains(k, "phone"), strings.Contains(k, "tel"):
		return TypePhone
	case containsAny(k, currencyKeyHints):
		return TypeCurrency
	case strings.Contains(k, "date"):
		return TypeDate
	}
	if s, ok := v.(string); ok && isoDate.MatchString(s) {
		return TypeDate
	}
	return TypeText
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
