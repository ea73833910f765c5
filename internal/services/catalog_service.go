package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/repositories"
)

var (
	// ErrItemInvalidInput indicates the caller supplied an invalid item field.
	ErrItemInvalidInput = errors.New("catalog: invalid input")
	// ErrItemNotFound indicates the item does not exist or is not visible to the caller.
	ErrItemNotFound = errors.New("catalog: item not found")
	// ErrItemHasOrders indicates the item cannot be deleted while orders hold its slots.
	ErrItemHasOrders = errors.New("catalog: item has orders")
)

// CatalogServiceDeps bundles collaborators required to construct a catalog service.
type CatalogServiceDeps struct {
	Items       repositories.ItemRepository
	Settings    repositories.SettingsRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type catalogService struct {
	itemRepo     repositories.ItemRepository
	settingsRepo repositories.SettingsRepository
	clock        func() time.Time
	idGen        func() string
	richText     *bluemonday.Policy
	plainText    *bluemonday.Policy
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs a service managing the item catalog.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Items == nil {
		return nil, errors.New("catalog service: item repository is required")
	}
	if deps.Settings == nil {
		return nil, errors.New("catalog service: settings repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &catalogService{
		itemRepo:     deps.Items,
		settingsRepo: deps.Settings,
		clock: func() time.Time {
			return clock().UTC()
		},
		idGen:     idGen,
		richText:  bluemonday.UGCPolicy(),
		plainText: bluemonday.StrictPolicy(),
	}, nil
}

func (s *catalogService) CreateItem(ctx context.Context, cmd CreateItemCommand) (CatalogItem, error) {
	name := s.plainText.Sanitize(strings.TrimSpace(cmd.Name))
	if name == "" {
		return CatalogItem{}, fmt.Errorf("%w: name is required", ErrItemInvalidInput)
	}
	if cmd.BasePriceYen <= 0 {
		return CatalogItem{}, fmt.Errorf("%w: base price must be positive", ErrItemInvalidInput)
	}
	if cmd.SellingPriceRp <= 0 {
		return CatalogItem{}, fmt.Errorf("%w: selling price must be positive", ErrItemInvalidInput)
	}
	if cmd.WeightGrams <= 0 {
		return CatalogItem{}, fmt.Errorf("%w: weight must be positive", ErrItemInvalidInput)
	}
	if cmd.MaxOrders <= 0 {
		return CatalogItem{}, fmt.Errorf("%w: max orders must be positive", ErrItemInvalidInput)
	}
	notes, err := s.sanitizeInfoNotes(cmd.InfoNotes)
	if err != nil {
		return CatalogItem{}, err
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return CatalogItem{}, err
	}
	basePriceRp := domain.BasePriceLocal(cmd.BasePriceYen, settings.ExchangeRate)

	now := s.clock()
	item := domain.Item{
		ID:               s.idGen(),
		Name:             name,
		Description:      s.richText.Sanitize(cmd.Description),
		Category:         s.plainText.Sanitize(strings.TrimSpace(cmd.Category)),
		Photos:           cmd.Photos,
		BasePriceYen:     cmd.BasePriceYen,
		BasePriceRp:      basePriceRp,
		SellingPriceRp:   cmd.SellingPriceRp,
		WeightGrams:      cmd.WeightGrams,
		MaxOrders:        cmd.MaxOrders,
		IsAvailable:      cmd.IsAvailable,
		IsDraft:          cmd.IsDraft,
		WithoutBoxNote:   cmd.WithoutBoxNote,
		IsLimitedEdition: cmd.IsLimitedEdition,
		IsPreorder:       cmd.IsPreorder,
		IsFragile:        cmd.IsFragile,
		InfoNotes:        notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.itemRepo.Insert(ctx, item); err != nil {
		return CatalogItem{}, err
	}
	return s.decorate(item), nil
}

func (s *catalogService) UpdateItem(ctx context.Context, cmd UpdateItemCommand) (CatalogItem, error) {
	if strings.TrimSpace(cmd.ItemID) == "" {
		return CatalogItem{}, fmt.Errorf("%w: item id is required", ErrItemInvalidInput)
	}

	item, err := s.itemRepo.FindByID(ctx, cmd.ItemID)
	if errors.Is(err, repositories.ErrNotFound) {
		return CatalogItem{}, ErrItemNotFound
	}
	if err != nil {
		return CatalogItem{}, err
	}

	if cmd.Name != nil {
		name := s.plainText.Sanitize(strings.TrimSpace(*cmd.Name))
		if name == "" {
			return CatalogItem{}, fmt.Errorf("%w: name cannot be blank", ErrItemInvalidInput)
		}
		item.Name = name
	}
	if cmd.Description != nil {
		item.Description = s.richText.Sanitize(*cmd.Description)
	}
	if cmd.Category != nil {
		item.Category = s.plainText.Sanitize(strings.TrimSpace(*cmd.Category))
	}
	if cmd.Photos != nil {
		item.Photos = *cmd.Photos
	}
	if cmd.WeightGrams != nil {
		if *cmd.WeightGrams <= 0 {
			return CatalogItem{}, fmt.Errorf("%w: weight must be positive", ErrItemInvalidInput)
		}
		item.WeightGrams = *cmd.WeightGrams
	}
	if cmd.MaxOrders != nil {
		if *cmd.MaxOrders < item.CurrentOrders {
			return CatalogItem{}, fmt.Errorf("%w: max orders cannot drop below current orders", ErrItemInvalidInput)
		}
		item.MaxOrders = *cmd.MaxOrders
	}
	if cmd.IsAvailable != nil {
		item.IsAvailable = *cmd.IsAvailable
	}
	if cmd.IsDraft != nil {
		item.IsDraft = *cmd.IsDraft
	}
	if cmd.WithoutBoxNote != nil {
		item.WithoutBoxNote = *cmd.WithoutBoxNote
	}
	if cmd.IsLimitedEdition != nil {
		item.IsLimitedEdition = *cmd.IsLimitedEdition
	}
	if cmd.IsPreorder != nil {
		item.IsPreorder = *cmd.IsPreorder
	}
	if cmd.IsFragile != nil {
		item.IsFragile = *cmd.IsFragile
	}
	if cmd.InfoNotes != nil {
		notes, err := s.sanitizeInfoNotes(*cmd.InfoNotes)
		if err != nil {
			return CatalogItem{}, err
		}
		item.InfoNotes = notes
	}

	if cmd.SellingPriceRp != nil {
		if *cmd.SellingPriceRp <= 0 {
			return CatalogItem{}, fmt.Errorf("%w: selling price must be positive", ErrItemInvalidInput)
		}
		item.SellingPriceRp = *cmd.SellingPriceRp
	}
	if cmd.BasePriceYen != nil {
		if *cmd.BasePriceYen <= 0 {
			return CatalogItem{}, fmt.Errorf("%w: base price must be positive", ErrItemInvalidInput)
		}
		item.BasePriceYen = *cmd.BasePriceYen
		settings, err := s.settingsRepo.Get(ctx)
		if err != nil {
			return CatalogItem{}, err
		}
		item.BasePriceRp = domain.BasePriceLocal(item.BasePriceYen, settings.ExchangeRate)
	}

	item.UpdatedAt = s.clock()
	if err := s.itemRepo.Update(ctx, item); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return CatalogItem{}, ErrItemNotFound
		}
		return CatalogItem{}, err
	}
	return s.decorate(item), nil
}

func (s *catalogService) GetItem(ctx context.Context, itemID string, storefront bool) (CatalogItem, error) {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if errors.Is(err, repositories.ErrNotFound) {
		return CatalogItem{}, ErrItemNotFound
	}
	if err != nil {
		return CatalogItem{}, err
	}
	if storefront && (item.IsDraft || !item.IsAvailable) {
		return CatalogItem{}, ErrItemNotFound
	}
	return s.decorate(item), nil
}

func (s *catalogService) ListItems(ctx context.Context, query CatalogQuery) ([]CatalogItem, error) {
	filter := repositories.ItemListFilter{
		Search: strings.TrimSpace(query.Search),
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if query.Storefront {
		filter.OnlyAvailable = true
		filter.OnlyPublished = true
	}

	items, err := s.itemRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	decorated := make([]CatalogItem, 0, len(items))
	for _, item := range items {
		decorated = append(decorated, s.decorate(item))
	}
	return decorated, nil
}

// DeleteItem hides the item by default. A forced delete removes the row and
// is refused while orders still hold its slots.
func (s *catalogService) DeleteItem(ctx context.Context, itemID string, force bool) error {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return err
	}

	if !force {
		item.IsAvailable = false
		item.UpdatedAt = s.clock()
		if err := s.itemRepo.Update(ctx, item); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrItemNotFound
			}
			return err
		}
		return nil
	}

	if item.CurrentOrders > 0 {
		return ErrItemHasOrders
	}
	err = s.itemRepo.Delete(ctx, itemID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrItemNotFound
	}
	return err
}

func (s *catalogService) RecordView(ctx context.Context, itemID string) (int64, error) {
	count, err := s.itemRepo.IncrementViewCount(ctx, itemID)
	if errors.Is(err, repositories.ErrNotFound) {
		return 0, ErrItemNotFound
	}
	return count, err
}

func (s *catalogService) decorate(item domain.Item) CatalogItem {
	return CatalogItem{
		Item:           item,
		Badge:          domain.BadgeFor(item, s.clock()),
		AvailableSlots: item.AvailableSlots(),
	}
}

func (s *catalogService) sanitizeInfoNotes(notes []InfoNote) ([]InfoNote, error) {
	if notes == nil {
		return nil, nil
	}
	sanitized := make([]InfoNote, 0, len(notes))
	for _, note := range notes {
		switch note.Type {
		case domain.InfoNoteAmber, domain.InfoNotePurple, domain.InfoNoteBlue, domain.InfoNoteRed:
		default:
			return nil, fmt.Errorf("%w: unknown info note type %q", ErrItemInvalidInput, note.Type)
		}
		text := s.plainText.Sanitize(strings.TrimSpace(note.Text))
		if text == "" {
			return nil, fmt.Errorf("%w: info note text is required", ErrItemInvalidInput)
		}
		sanitized = append(sanitized, InfoNote{Type: note.Type, Text: text})
	}
	return sanitized, nil
}
