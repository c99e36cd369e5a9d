// Common value objects shared across modules.
package types

type ID string

type Money struct {
	Amount   int64
	Currency string
}

// Cents converts a dollar amount to Money, rounding half away from zero.
func Cents(dollars float64, currency string) Money {
	amount := int64(dollars*100 + 0.5)
	if dollars < 0 {
		amount = int64(dollars*100 - 0.5)
	}
	return Money{Amount: amount, Currency: currency}
}
