package normalize

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// currencyTokens are stripped from numeric text before parsing.
// Longer tokens come first so "USDT" is removed before "USD".
var currencyTokens = []string{"USDT", "USDC", "USD", "EUR", "$", "€", "£", "¥", "₹", "₩", "₿"}

// ParseNumber converts a loosely typed value into a float64.
// It accepts native numerics and text such as "3,401.188", "$1,250" or "(45.00)".
// The boolean is false when the value is empty or cannot be parsed.
func ParseNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case string:
		return parseNumericText(v)
	case *string:
		if v == nil {
			return 0, false
		}
		return parseNumericText(*v)
	case json.Number:
		return parseNumericText(v.String())
	case bool:
		return 0, false
	}

	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseNumericText(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	upper := strings.ToUpper(s)
	for _, tok := range currencyTokens {
		upper = strings.ReplaceAll(upper, tok, "")
	}
	s = strings.Map(func(r rune) rune {
		if r == '+' || r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, upper)

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	if s == "" || s == "-" {
		return 0, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}
