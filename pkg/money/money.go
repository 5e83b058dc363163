// Package money formats and scales integer cent amounts.
package money

import "github.com/shopspring/decimal"

// FormatCents renders cents as a fixed two-decimal string, e.g. 1050 -> "10.50".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ApplyRate returns cents * rate rounded half away from zero to whole cents.
func ApplyRate(cents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(rate).Round(0).IntPart()
}
