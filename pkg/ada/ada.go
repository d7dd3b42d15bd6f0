// Package ada converts between ADA and lovelace, its smallest unit.
package ada

import "github.com/shopspring/decimal"

// Currency is the ISO-like code used for ADA in conversion requests.
const Currency = "ADA"

// LovelacePerADA is the number of lovelace in one ADA.
const LovelacePerADA = 1_000_000

const decimals = 6

// LovelaceToADA returns the display amount for a lovelace quantity.
func LovelaceToADA(lovelace int64) float64 {
	return decimal.NewFromInt(lovelace).Shift(-decimals).InexactFloat64()
}

// LovelaceToADADecimal is LovelaceToADA without the float conversion.
func LovelaceToADADecimal(lovelace int64) decimal.Decimal {
	return decimal.NewFromInt(lovelace).Shift(-decimals)
}

// ADAToLovelace converts an ADA amount to lovelace, rounding up so a
// payment request never asks for less than the quoted price.
func ADAToLovelace(amount decimal.Decimal) int64 {
	return amount.Shift(decimals).Ceil().IntPart()
}
