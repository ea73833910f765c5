package domain

import "math"

// BasePriceLocal converts a JPY base price into local currency (IDR) using
// the configured exchange rate, rounding halves away from zero.
func BasePriceLocal(baseYen int64, rate float64) int64 {
	return int64(math.Round(float64(baseYen) * rate))
}

// SellingPriceWithMargin suggests a local selling price: the converted base
// price plus a percentage margin, rounded up to the next rupiah. The admin
// may override the suggestion when publishing an item.
func SellingPriceWithMargin(baseYen int64, rate float64, marginPercent float64) int64 {
	base := float64(baseYen) * rate
	return int64(math.Ceil(base + base*marginPercent/100))
}
