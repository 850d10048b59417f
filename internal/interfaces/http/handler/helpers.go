package handler

import "github.com/shopspring/decimal"

// toDecimal converts a float64 to a decimal.Decimal
func toDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// toDecimalPtr converts a float64 to a *decimal.Decimal
func toDecimalPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

// toFloat converts a decimal to a float64 for API responses
func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
