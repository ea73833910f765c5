package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/repositories"
)

func newCatalogServiceForTest(t *testing.T, items *stubItemRepository, settings *stubSettingsRepository, now time.Time) CatalogService {
	t.Helper()
	counter := 0
	svc, err := NewCatalogService(CatalogServiceDeps{
		Items:    items,
		Settings: settings,
		Clock:    fixedClock(now),
		IDGenerator: func() string {
			counter++
			return fmt.Sprintf("item-%03d", counter)
		},
	})
	if err != nil {
		t.Fatalf("new catalog service: %v", err)
	}
	return svc
}

func TestCatalogServiceCreateItemComputesPrices(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := &stubItemRepository{items: map[string]domain.Item{}}
	settings := &stubSettingsRepository{settings: domain.Settings{
		ExchangeRate:         108.5,
		DefaultMarginPercent: 10,
	}}
	svc := newCatalogServiceForTest(t, items, settings, now)

	created, err := svc.CreateItem(context.Background(), CreateItemCommand{
		Name:           "Tokyo Banana",
		BasePriceYen:   500,
		SellingPriceRp: 60000,
		WeightGrams:    300,
		MaxOrders:      5,
		IsAvailable:    true,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if created.BasePriceRp != 54250 {
		t.Fatalf("expected base price 54250, got %d", created.BasePriceRp)
	}
	// The selling price is whatever the admin submitted, not a derived figure.
	if created.SellingPriceRp != 60000 {
		t.Fatalf("expected selling price 60000, got %d", created.SellingPriceRp)
	}
	if len(items.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(items.inserted))
	}
	if created.Badge != domain.BadgeNew {
		t.Fatalf("expected new badge on fresh item, got %s", created.Badge)
	}
	if created.AvailableSlots != 5 {
		t.Fatalf("expected 5 available slots, got %d", created.AvailableSlots)
	}
}

func TestCatalogServiceCreateItemRequiresSellingPrice(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := &stubItemRepository{items: map[string]domain.Item{}}
	settings := &stubSettingsRepository{settings: domain.Settings{ExchangeRate: 100}}
	svc := newCatalogServiceForTest(t, items, settings, now)

	cmd := CreateItemCommand{
		Name:         "Gachapon Set",
		BasePriceYen: 1000,
		WeightGrams:  200,
		MaxOrders:    3,
	}
	if _, err := svc.CreateItem(context.Background(), cmd); !errors.Is(err, ErrItemInvalidInput) {
		t.Fatalf("expected invalid input without a selling price, got %v", err)
	}

	cmd.SellingPriceRp = -5
	if _, err := svc.CreateItem(context.Background(), cmd); !errors.Is(err, ErrItemInvalidInput) {
		t.Fatalf("expected invalid input for a negative selling price, got %v", err)
	}
}

func TestCatalogServiceCreateItemSanitizesMarkup(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := &stubItemRepository{items: map[string]domain.Item{}}
	settings := &stubSettingsRepository{settings: domain.Settings{ExchangeRate: 100}}
	svc := newCatalogServiceForTest(t, items, settings, now)

	created, err := svc.CreateItem(context.Background(), CreateItemCommand{
		Name:           "Snack <script>alert(1)</script>Box",
		Description:    `<p>Tasty</p><script>alert(2)</script>`,
		BasePriceYen:   100,
		SellingPriceRp: 15000,
		WeightGrams:    100,
		MaxOrders:      1,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if strings.Contains(created.Name, "<script>") {
		t.Fatalf("expected script stripped from name, got %q", created.Name)
	}
	if strings.Contains(created.Description, "script") {
		t.Fatalf("expected script stripped from description, got %q", created.Description)
	}
	if !strings.Contains(created.Description, "<p>Tasty</p>") {
		t.Fatalf("expected benign markup preserved, got %q", created.Description)
	}
}

func TestCatalogServiceCreateItemRejectsBadInput(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogServiceForTest(t, &stubItemRepository{}, &stubSettingsRepository{}, now)

	cases := []CreateItemCommand{
		{BasePriceYen: 100, SellingPriceRp: 1000, WeightGrams: 100, MaxOrders: 1},
		{Name: "x", BasePriceYen: 0, SellingPriceRp: 1000, WeightGrams: 100, MaxOrders: 1},
		{Name: "x", BasePriceYen: 100, SellingPriceRp: 0, WeightGrams: 100, MaxOrders: 1},
		{Name: "x", BasePriceYen: 100, SellingPriceRp: 1000, WeightGrams: 0, MaxOrders: 1},
		{Name: "x", BasePriceYen: 100, SellingPriceRp: 1000, WeightGrams: 100, MaxOrders: 0},
		{Name: "x", BasePriceYen: 100, SellingPriceRp: 1000, WeightGrams: 100, MaxOrders: 1, InfoNotes: []InfoNote{{Type: "green", Text: "hi"}}},
	}
	for i, cmd := range cases {
		if _, err := svc.CreateItem(context.Background(), cmd); !errors.Is(err, ErrItemInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestCatalogServiceUpdateItemRecomputesBasePrice(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := &stubItemRepository{items: map[string]domain.Item{
		"item-1": {
			ID:             "item-1",
			Name:           "Kit Kat Matcha",
			BasePriceYen:   500,
			BasePriceRp:    54250,
			SellingPriceRp: 59675,
			WeightGrams:    150,
			MaxOrders:      10,
			CreatedAt:      now.Add(-96 * time.Hour),
		},
	}}
	settings := &stubSettingsRepository{settings: domain.Settings{
		ExchangeRate:         110,
		DefaultMarginPercent: 10,
	}}
	svc := newCatalogServiceForTest(t, items, settings, now)

	newYen := int64(600)
	updated, err := svc.UpdateItem(context.Background(), UpdateItemCommand{
		ItemID:       "item-1",
		BasePriceYen: &newYen,
	})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.BasePriceRp != 66000 {
		t.Fatalf("expected base price 66000, got %d", updated.BasePriceRp)
	}
	// A yen change moves only the base price; the selling price stays where
	// the admin set it.
	if updated.SellingPriceRp != 59675 {
		t.Fatalf("expected selling price unchanged at 59675, got %d", updated.SellingPriceRp)
	}
	if !updated.UpdatedAt.Equal(now) {
		t.Fatalf("expected updated timestamp %v, got %v", now, updated.UpdatedAt)
	}
}

func TestCatalogServiceUpdateItemPatchesSellingPrice(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := &stubItemRepository{items: map[string]domain.Item{
		"item-1": {ID: "item-1", Name: "Kit Kat Matcha", BasePriceYen: 500, BasePriceRp: 54250, SellingPriceRp: 59675, WeightGrams: 150, MaxOrders: 10},
	}}
	svc := newCatalogServiceForTest(t, items, &stubSettingsRepository{}, now)

	newPrice := int64(62000)
	updated, err := svc.UpdateItem(context.Background(), UpdateItemCommand{
		ItemID:         "item-1",
		SellingPriceRp: &newPrice,
	})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.SellingPriceRp != 62000 {
		t.Fatalf("expected selling price 62000, got %d", updated.SellingPriceRp)
	}
	if updated.BasePriceRp != 54250 {
		t.Fatalf("expected base price untouched, got %d", updated.BasePriceRp)
	}

	bad := int64(0)
	if _, err := svc.UpdateItem(context.Background(), UpdateItemCommand{ItemID: "item-1", SellingPriceRp: &bad}); !errors.Is(err, ErrItemInvalidInput) {
		t.Fatalf("expected invalid input for zero selling price, got %v", err)
	}
}

func TestCatalogServiceUpdateItemKeepsPricesWithoutPriceChange(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := &stubItemRepository{items: map[string]domain.Item{
		"item-1": {ID: "item-1", Name: "Pocky", BasePriceYen: 200, BasePriceRp: 21700, SellingPriceRp: 23870, WeightGrams: 80, MaxOrders: 4},
	}}
	svc := newCatalogServiceForTest(t, items, &stubSettingsRepository{}, now)

	available := false
	updated, err := svc.UpdateItem(context.Background(), UpdateItemCommand{
		ItemID:      "item-1",
		IsAvailable: &available,
	})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.SellingPriceRp != 23870 {
		t.Fatalf("expected selling price unchanged, got %d", updated.SellingPriceRp)
	}
	if updated.IsAvailable {
		t.Fatalf("expected item hidden")
	}
}

func TestCatalogServiceUpdateItemRejectsMaxOrdersBelowCurrent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := &stubItemRepository{items: map[string]domain.Item{
		"item-1": {ID: "item-1", Name: "Pocky", MaxOrders: 5, CurrentOrders: 3},
	}}
	svc := newCatalogServiceForTest(t, items, &stubSettingsRepository{}, now)

	lower := int64(2)
	if _, err := svc.UpdateItem(context.Background(), UpdateItemCommand{ItemID: "item-1", MaxOrders: &lower}); !errors.Is(err, ErrItemInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCatalogServiceGetItemHidesDraftsFromStorefront(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := &stubItemRepository{items: map[string]domain.Item{
		"draft": {ID: "draft", Name: "Draft", IsDraft: true, IsAvailable: true},
	}}
	svc := newCatalogServiceForTest(t, items, &stubSettingsRepository{}, now)

	if _, err := svc.GetItem(context.Background(), "draft", true); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected not found for storefront draft read, got %v", err)
	}
	if _, err := svc.GetItem(context.Background(), "draft", false); err != nil {
		t.Fatalf("expected admin read to succeed, got %v", err)
	}
}

func TestCatalogServiceListItemsStorefrontFiltering(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := &stubItemRepository{}
	var captured repositories.ItemListFilter
	items.listFn = func(_ context.Context, filter repositories.ItemListFilter) ([]domain.Item, error) {
		captured = filter
		return []domain.Item{{ID: "a", MaxOrders: 3, CurrentOrders: 3, CreatedAt: now.Add(-200 * time.Hour)}}, nil
	}
	svc := newCatalogServiceForTest(t, items, &stubSettingsRepository{}, now)

	listed, err := svc.ListItems(context.Background(), CatalogQuery{Storefront: true, Search: " figure ", Limit: 10})
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if !captured.OnlyAvailable || !captured.OnlyPublished {
		t.Fatalf("expected storefront filters set, got %+v", captured)
	}
	if captured.Search != "figure" {
		t.Fatalf("expected trimmed search, got %q", captured.Search)
	}
	if len(listed) != 1 || listed[0].Badge != domain.BadgeFull {
		t.Fatalf("expected one fully booked item, got %+v", listed)
	}
}

func TestCatalogServiceDeleteItemSoftDeletesByDefault(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := &stubItemRepository{items: map[string]domain.Item{
		"busy": {ID: "busy", IsAvailable: true, CurrentOrders: 2},
	}}
	svc := newCatalogServiceForTest(t, items, &stubSettingsRepository{}, now)

	// Without force the item is hidden, even with active orders.
	if err := svc.DeleteItem(context.Background(), "busy", false); err != nil {
		t.Fatalf("expected soft delete to succeed, got %v", err)
	}
	if len(items.deleted) != 0 {
		t.Fatalf("expected no row removal, got %v", items.deleted)
	}
	hidden := items.items["busy"]
	if hidden.IsAvailable {
		t.Fatal("expected item marked unavailable")
	}
	if !hidden.UpdatedAt.Equal(now) {
		t.Fatalf("expected updated timestamp %v, got %v", now, hidden.UpdatedAt)
	}
}

func TestCatalogServiceDeleteItemForceGuardsActiveOrders(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := &stubItemRepository{items: map[string]domain.Item{
		"busy": {ID: "busy", CurrentOrders: 2},
		"idle": {ID: "idle"},
	}}
	svc := newCatalogServiceForTest(t, items, &stubSettingsRepository{}, now)

	if err := svc.DeleteItem(context.Background(), "busy", true); !errors.Is(err, ErrItemHasOrders) {
		t.Fatalf("expected has-orders guard, got %v", err)
	}
	if err := svc.DeleteItem(context.Background(), "idle", true); err != nil {
		t.Fatalf("expected forced delete to succeed, got %v", err)
	}
	if len(items.deleted) != 1 || items.deleted[0] != "idle" {
		t.Fatalf("expected idle row removed, got %v", items.deleted)
	}
	if err := svc.DeleteItem(context.Background(), "missing", true); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCatalogServiceRecordView(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := &stubItemRepository{items: map[string]domain.Item{"item-1": {ID: "item-1"}}}
	svc := newCatalogServiceForTest(t, items, &stubSettingsRepository{}, now)

	if _, err := svc.RecordView(context.Background(), "item-1"); err != nil {
		t.Fatalf("record view: %v", err)
	}
	count, err := svc.RecordView(context.Background(), "item-1")
	if err != nil {
		t.Fatalf("record view: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected view count 2, got %d", count)
	}
	if _, err := svc.RecordView(context.Background(), "missing"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
