package services

import (
	"context"
	"io"
	"time"

	domain "github.com/dkotama/jastip-api/internal/domain"
	pstorage "github.com/dkotama/jastip-api/internal/platform/storage"
	"github.com/dkotama/jastip-api/internal/repositories"
)

type stubSettingsRepository struct {
	settings domain.Settings
	getErr   error
	updateFn func(context.Context, repositories.SettingsUpdate) (domain.Settings, error)
	updates  []repositories.SettingsUpdate
}

func (s *stubSettingsRepository) Get(context.Context) (domain.Settings, error) {
	return s.settings, s.getErr
}

func (s *stubSettingsRepository) Update(ctx context.Context, update repositories.SettingsUpdate) (domain.Settings, error) {
	s.updates = append(s.updates, update)
	if s.updateFn != nil {
		return s.updateFn(ctx, update)
	}
	return s.settings, nil
}

type stubItemRepository struct {
	items      map[string]domain.Item
	inserted   []domain.Item
	updated    []domain.Item
	deleted    []string
	listFn     func(context.Context, repositories.ItemListFilter) ([]domain.Item, error)
	usedGrams  int64
	usedErr    error
	viewCounts map[string]int64
}

func (s *stubItemRepository) Insert(_ context.Context, item domain.Item) error {
	s.inserted = append(s.inserted, item)
	return nil
}

func (s *stubItemRepository) Update(_ context.Context, item domain.Item) error {
	if _, ok := s.items[item.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.updated = append(s.updated, item)
	s.items[item.ID] = item
	return nil
}

func (s *stubItemRepository) FindByID(_ context.Context, itemID string) (domain.Item, error) {
	item, ok := s.items[itemID]
	if !ok {
		return domain.Item{}, repositories.ErrNotFound
	}
	return item, nil
}

func (s *stubItemRepository) List(ctx context.Context, filter repositories.ItemListFilter) ([]domain.Item, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

func (s *stubItemRepository) Delete(_ context.Context, itemID string) error {
	if _, ok := s.items[itemID]; !ok {
		return repositories.ErrNotFound
	}
	s.deleted = append(s.deleted, itemID)
	delete(s.items, itemID)
	return nil
}

func (s *stubItemRepository) IncrementViewCount(_ context.Context, itemID string) (int64, error) {
	if _, ok := s.items[itemID]; !ok {
		return 0, repositories.ErrNotFound
	}
	if s.viewCounts == nil {
		s.viewCounts = map[string]int64{}
	}
	s.viewCounts[itemID]++
	return s.viewCounts[itemID], nil
}

func (s *stubItemRepository) UsedQuotaGrams(context.Context) (int64, error) {
	return s.usedGrams, s.usedErr
}

type stubUserRepository struct {
	byID       map[string]domain.User
	byGoogleID map[string]domain.User
	created    []domain.User
	createErr  error
	lastLogins map[string]time.Time
}

func (s *stubUserRepository) FindByID(_ context.Context, userID string) (domain.User, error) {
	user, ok := s.byID[userID]
	if !ok {
		return domain.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *stubUserRepository) FindByGoogleID(_ context.Context, googleID string) (domain.User, error) {
	user, ok := s.byGoogleID[googleID]
	if !ok {
		return domain.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *stubUserRepository) CreateFromInvite(_ context.Context, user domain.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, user)
	return nil
}

func (s *stubUserRepository) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	if _, ok := s.byID[userID]; !ok {
		if _, found := findUserByID(s.byGoogleID, userID); !found {
			return repositories.ErrNotFound
		}
	}
	if s.lastLogins == nil {
		s.lastLogins = map[string]time.Time{}
	}
	s.lastLogins[userID] = at
	return nil
}

func (s *stubUserRepository) UserRevoked(_ context.Context, userID string) (bool, error) {
	if user, ok := s.byID[userID]; ok {
		return user.IsRevoked, nil
	}
	return false, repositories.ErrNotFound
}

func findUserByID(users map[string]domain.User, userID string) (domain.User, bool) {
	for _, user := range users {
		if user.ID == userID {
			return user, true
		}
	}
	return domain.User{}, false
}

type stubTokenRepository struct {
	byCode     map[string]domain.InviteToken
	inserted   []domain.InviteToken
	insertErrs []error
	listings   []domain.InviteTokenListing
	revoked    []string
	revokeErr  error
}

func (s *stubTokenRepository) Insert(_ context.Context, token domain.InviteToken) error {
	if len(s.insertErrs) > 0 {
		err := s.insertErrs[0]
		s.insertErrs = s.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	s.inserted = append(s.inserted, token)
	return nil
}

func (s *stubTokenRepository) FindByCode(_ context.Context, code string) (domain.InviteToken, error) {
	token, ok := s.byCode[code]
	if !ok {
		return domain.InviteToken{}, repositories.ErrNotFound
	}
	return token, nil
}

func (s *stubTokenRepository) List(context.Context) ([]domain.InviteTokenListing, error) {
	return s.listings, nil
}

func (s *stubTokenRepository) Revoke(_ context.Context, tokenID, _ string, _ time.Time) error {
	if s.revokeErr != nil {
		return s.revokeErr
	}
	s.revoked = append(s.revoked, tokenID)
	return nil
}

type stubOrderRepository struct {
	byID           map[string]domain.Order
	created        []domain.Order
	createErr      error
	listFn         func(context.Context, repositories.OrderListFilter) ([]domain.Order, error)
	statusUpdates  []domain.OrderStatus
	detailsUpdates []repositories.OrderDetailsUpdate
}

func (s *stubOrderRepository) Create(_ context.Context, order domain.Order) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, order)
	return nil
}

func (s *stubOrderRepository) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	order, ok := s.byID[orderID]
	if !ok {
		return domain.Order{}, repositories.ErrNotFound
	}
	return order, nil
}

func (s *stubOrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

func (s *stubOrderRepository) UpdateStatus(_ context.Context, orderID string, to domain.OrderStatus, at time.Time) (domain.Order, error) {
	order, ok := s.byID[orderID]
	if !ok {
		return domain.Order{}, repositories.ErrNotFound
	}
	if err := domain.ValidateTransition(order.Status, to); err != nil {
		return domain.Order{}, err
	}
	order.Status = to
	order.UpdatedAt = at
	s.byID[orderID] = order
	s.statusUpdates = append(s.statusUpdates, to)
	return order, nil
}

func (s *stubOrderRepository) UpdateDetails(_ context.Context, update repositories.OrderDetailsUpdate) (domain.Order, error) {
	order, ok := s.byID[update.OrderID]
	if !ok {
		return domain.Order{}, repositories.ErrNotFound
	}
	s.detailsUpdates = append(s.detailsUpdates, update)
	return order, nil
}

type stubPhotoStore struct {
	objects map[string]*pstorage.Object
	puts    []string
	putErr  error
}

func (s *stubPhotoStore) Put(_ context.Context, key, _ string, body io.Reader) error {
	if s.putErr != nil {
		return s.putErr
	}
	_, _ = io.Copy(io.Discard, body)
	s.puts = append(s.puts, key)
	return nil
}

func (s *stubPhotoStore) Get(_ context.Context, key string) (*pstorage.Object, error) {
	object, ok := s.objects[key]
	if !ok {
		return nil, pstorage.ErrObjectNotFound
	}
	return object, nil
}

type stubHealthRepository struct {
	report domain.SystemHealthReport
	err    error
}

func (s *stubHealthRepository) Collect(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}
