package summary

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Values are rendered for a fixed US English locale.
var usPrinter = message.NewPrinter(language.AmericanEnglish)

// numericText accepts plain decimal numbers; hex, "Inf" and "NaN" are not
// user-entered amounts.
var numericText = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// dateLayouts are tried, in order, for date values that are not a bare
// YYYY-MM-DD string.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	time.RFC1123,
	time.RFC1123Z,
}

const displayDateLayout = "January 2, 2006"

// Format converts a raw value into its display string for type t.
func Format(v any, t FieldType) string {
	if isEmptyValue(v) {
		return EmptyPlaceholder
	}
	switch t {
	case TypeBoolean:
		return formatBoolean(v)
	case TypeCurrency:
		return formatCurrency(v)
	case TypePhone:
		return formatPhone(v)
	case TypeEmail:
		return strings.ToLower(strings.TrimSpace(stringify(v)))
	case TypeDate:
		return formatDate(v)
	case TypeNumber:
		if f, ok := parseNumber(v); ok {
			return groupDigits(f)
		}
		return stringify(v)
	}
	if _, isString := v.(string); !isString {
		if f, ok := toFloat(v); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return groupDigits(f)
		}
	}
	return stringify(v)
}

func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case Scalar:
		return isEmptyValue(x.V)
	}
	return false
}

func formatBoolean(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case string:
		switch strings.ToLower(x) {
		case "true", "yes":
			return "Yes"
		case "false", "no":
			return "No"
		}
	}
	return stringify(v)
}

func formatCurrency(v any) string {
	f, ok := parseNumber(v)
	if !ok {
		return stringify(v)
	}
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}
	return sign + "$" + usPrinter.Sprint(number.Decimal(f,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
}

// groupDigits renders f with thousands separators and at most three
// fraction digits.
func groupDigits(f float64) string {
	return usPrinter.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))
}

// parseNumber reads a float from a numeric value or numeric text. Text may
// carry thousands separators and a leading dollar sign.
func parseNumber(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		s = strings.ReplaceAll(s, ",", "")
		neg := strings.HasPrefix(s, "-")
		s = strings.TrimPrefix(s, "-")
		s = strings.TrimPrefix(s, "$")
		if !numericText.MatchString(s) {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) {
			return 0, false
		}
		if neg {
			f = -f
		}
		return f, true
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatPhone(v any) string {
	orig := stringify(v)
	var b strings.Builder
	for _, r := range orig {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	switch {
	case len(d) == 10:
		return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:])
	case len(d) == 11 && d[0] == '1':
		return fmt.Sprintf("+1 (%s) %s-%s", d[1:4], d[4:7], d[7:])
	case len(d) > 10:
		cc, local := d[:len(d)-10], d[len(d)-10:]
		return fmt.Sprintf("+%s %s %s %s", cc, local[:3], local[3:6], local[6:])
	}
	return orig
}

func formatDate(v any) string {
	t, ok := parseDate(v)
	if !ok {
		return stringify(v)
	}
	return t.Format(displayDateLayout)
}

// parseDate builds a calendar date. Bare YYYY-MM-DD strings are taken
// literally so no timezone shift can move the day.
func parseDate(v any) (time.Time, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if isoDate.MatchString(s) {
			y, _ := strconv.Atoi(s[0:4])
			m, _ := strconv.Atoi(s[5:7])
			d, _ := strconv.Atoi(s[8:10])
			return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), true
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if _, ok := v.(bool); ok {
		return time.Time{}, false
	}
	if f, ok := toFloat(v); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	return time.Time{}, false
}
