package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Parse converts a decimal amount string ("50.00") into a decimal.Decimal,
// rejecting malformed or non-positive values.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("amount must be positive, got %q", s)
	}
	return d, nil
}

// Equal reports whether two decimal amount strings represent the same value.
// The comparison is numeric, so "50.00" equals "50.0" but "99.994" never
// equals "100.00". Malformed input compares unequal.
func Equal(a, b string) bool {
	da, err := decimal.NewFromString(a)
	if err != nil {
		return false
	}
	db, err := decimal.NewFromString(b)
	if err != nil {
		return false
	}
	return da.Equal(db)
}
