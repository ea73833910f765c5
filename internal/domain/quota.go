package domain

import (
	"math"
	"time"
)

// UsedQuotaGrams sums the weight committed by existing orders across the
// published, available item set. Drafts and hidden items do not count.
func UsedQuotaGrams(items []Item) int64 {
	var used int64
	for _, item := range items {
		if !item.IsAvailable || item.IsDraft {
			continue
		}
		used += item.WeightGrams * item.CurrentOrders
	}
	return used
}

// RemainingQuotaGrams returns the unreserved baggage allowance, floored at
// zero so oversold cycles read as exhausted rather than negative.
func RemainingQuotaGrams(totalGrams, usedGrams int64) int64 {
	remaining := totalGrams - usedGrams
	if remaining < 0 {
		return 0
	}
	return remaining
}

// QuotaKg converts grams to kilograms rounded to one decimal place for
// storefront display.
func QuotaKg(grams int64) float64 {
	return math.Round(float64(grams)/100) / 10
}

// TotalQuotaKg converts the configured allowance to kilograms exactly. Only
// the remaining figure is rounded for display.
func TotalQuotaKg(grams int64) float64 {
	return float64(grams) / 1000
}

// CountdownDays returns the whole days until the cycle close date, rounded
// up and floored at zero. It returns nil when the cycle is closed or no
// close date is set.
func CountdownDays(status JastipStatus, closeDate *time.Time, now time.Time) *int64 {
	if status != JastipOpen || closeDate == nil {
		return nil
	}
	days := int64(math.Ceil(closeDate.Sub(now).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return &days
}
