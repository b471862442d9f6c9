// Package core provides the expense record and input coercion helpers.
//
// This file contains amount parsing and rendering. Amounts are kept as
// decimals so that sums such as 10.5 + 20.25 print exactly.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses s as a decimal number.
//
// Sign and range are not checked: negative and zero amounts are valid.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("-5")    -> -5, nil
//	ParseAmount("1e3")   -> 1000, nil
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, &ParseError{Field: ColumnAmount, Input: s, Err: errors.Join(ErrInvalidAmount, err)}
	}
	return d, nil
}

// CoerceAmount applies the amount column's REAL affinity to user input:
// numbers become decimals, anything else is kept verbatim as text. It never
// fails.
func CoerceAmount(s string) (decimal.Decimal, *string) {
	if d, err := ParseAmount(s); err == nil {
		return d, nil
	}
	return decimal.Zero, &s
}

// FormatTotal renders a sum for display; absent sums render as "none".
func FormatTotal(total decimal.Decimal, ok bool) string {
	if !ok {
		return "none"
	}
	return total.String()
}
