package domain

import "time"

// NewItemWindow is how long a published item keeps the "new" badge.
const NewItemWindow = 72 * time.Hour

// BadgeFor classifies an item for the storefront. Capacity exhaustion wins
// over everything, low stock over recency.
func BadgeFor(item Item, now time.Time) ItemBadge {
	slots := item.AvailableSlots()
	switch {
	case slots <= 0:
		return BadgeFull
	case slots <= 2:
		return BadgeLowStock
	case item.CreatedAt.After(now.Add(-NewItemWindow)):
		return BadgeNew
	default:
		return BadgeAvailable
	}
}
