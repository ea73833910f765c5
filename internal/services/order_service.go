package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/repositories"
)

// customLineName labels a buyer-sourced line when no name was supplied.
const customLineName = "Custom Item"

var (
	// ErrOrderInvalidInput indicates the caller supplied invalid order parameters.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order does not exist or is not visible to the caller.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderingClosed indicates the current cycle is not accepting orders.
	ErrOrderingClosed = errors.New("order: ordering closed")
	// ErrOrderQuotaExceeded indicates the order does not fit the remaining baggage quota.
	ErrOrderQuotaExceeded = errors.New("order: baggage quota exceeded")
	// ErrOrderSlotsUnavailable indicates an item ran out of slots while ordering.
	ErrOrderSlotsUnavailable = errors.New("order: item slots unavailable")
)

// OrderServiceDeps bundles collaborators required to construct an order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Items       repositories.ItemRepository
	Settings    repositories.SettingsRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type orderService struct {
	orderRepo    repositories.OrderRepository
	itemRepo     repositories.ItemRepository
	settingsRepo repositories.SettingsRepository
	clock        func() time.Time
	idGen        func() string
}

var _ OrderService = (*orderService)(nil)

// NewOrderService constructs a service managing order placement and fulfilment.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Items == nil {
		return nil, errors.New("order service: item repository is required")
	}
	if deps.Settings == nil {
		return nil, errors.New("order service: settings repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &orderService{
		orderRepo:    deps.Orders,
		itemRepo:     deps.Items,
		settingsRepo: deps.Settings,
		clock: func() time.Time {
			return clock().UTC()
		},
		idGen: idGen,
	}, nil
}

func (s *orderService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Lines) == 0 {
		return Order{}, fmt.Errorf("%w: at least one line is required", ErrOrderInvalidInput)
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return Order{}, err
	}
	if settings.JastipStatus != domain.JastipOpen {
		return Order{}, ErrOrderingClosed
	}

	now := s.clock()
	order := domain.Order{
		ID:        s.idGen(),
		UserID:    cmd.UserID,
		Status:    domain.OrderWaitingPayment,
		Note:      strings.TrimSpace(cmd.Note),
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, input := range cmd.Lines {
		line, err := s.buildLine(ctx, order.ID, input)
		if err != nil {
			return Order{}, err
		}
		order.Items = append(order.Items, line)
		order.TotalPriceRp += line.PriceRp * line.Quantity
		order.TotalPriceYen += line.PriceYen * line.Quantity
		order.TotalWeightGrams += line.WeightGrams * line.Quantity
	}

	used, err := s.itemRepo.UsedQuotaGrams(ctx)
	if err != nil {
		return Order{}, err
	}
	remaining := domain.RemainingQuotaGrams(settings.TotalBaggageQuotaGrams, used)
	if order.TotalWeightGrams > remaining {
		return Order{}, ErrOrderQuotaExceeded
	}

	err = s.orderRepo.Create(ctx, order)
	if errors.Is(err, repositories.ErrSlotsExhausted) {
		return Order{}, ErrOrderSlotsUnavailable
	}
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (s *orderService) buildLine(ctx context.Context, orderID string, input OrderLineInput) (OrderItem, error) {
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return OrderItem{}, fmt.Errorf("%w: quantity cannot be negative", ErrOrderInvalidInput)
	}

	line := domain.OrderItem{
		ID:       s.idGen(),
		OrderID:  orderID,
		Quantity: quantity,
	}

	if input.IsCustom {
		line.IsCustom = true
		line.Name = strings.TrimSpace(input.CustomName)
		if line.Name == "" {
			line.Name = customLineName
		}
		line.CustomURL = strings.TrimSpace(input.CustomURL)
		line.CustomNote = strings.TrimSpace(input.CustomNote)
		line.Source = strings.TrimSpace(input.Source)
		return line, nil
	}

	if strings.TrimSpace(input.ItemID) == "" {
		return OrderItem{}, fmt.Errorf("%w: item id is required on catalog lines", ErrOrderInvalidInput)
	}

	item, err := s.itemRepo.FindByID(ctx, input.ItemID)
	if errors.Is(err, repositories.ErrNotFound) {
		return OrderItem{}, ErrItemNotFound
	}
	if err != nil {
		return OrderItem{}, err
	}
	if item.IsDraft || !item.IsAvailable {
		return OrderItem{}, ErrItemNotFound
	}

	line.ItemID = item.ID
	line.Name = item.Name
	line.PriceYen = item.BasePriceYen
	line.PriceRp = item.SellingPriceRp
	line.WeightGrams = item.WeightGrams
	return line, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID, requesterID string) (Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, repositories.ErrNotFound) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if requesterID != "" && order.UserID != requesterID {
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, query OrderQuery) ([]Order, error) {
	return s.orderRepo.List(ctx, repositories.OrderListFilter{
		UserID: query.UserID,
		Status: query.Status,
	})
}

func (s *orderService) UpdateStatus(ctx context.Context, cmd OrderStatusCommand) (Order, error) {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	status := domain.OrderStatus(strings.TrimSpace(cmd.Status))
	if !domain.ValidOrderStatus(status) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Status)
	}

	order, err := s.orderRepo.UpdateStatus(ctx, cmd.OrderID, status, s.clock())
	if errors.Is(err, repositories.ErrNotFound) {
		return Order{}, ErrOrderNotFound
	}
	return order, err
}

func (s *orderService) UpdateDetails(ctx context.Context, cmd OrderDetailsCommand) (Order, error) {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	for _, value := range []*int64{cmd.TotalPriceRp, cmd.TotalPriceYen, cmd.TotalWeightGrams} {
		if value != nil && *value < 0 {
			return Order{}, fmt.Errorf("%w: totals cannot be negative", ErrOrderInvalidInput)
		}
	}

	update := repositories.OrderDetailsUpdate{
		OrderID:          cmd.OrderID,
		TotalPriceRp:     cmd.TotalPriceRp,
		TotalPriceYen:    cmd.TotalPriceYen,
		TotalWeightGrams: cmd.TotalWeightGrams,
		Note:             cmd.Note,
		UpdatedAt:        s.clock(),
	}
	for _, line := range cmd.Lines {
		if strings.TrimSpace(line.OrderItemID) == "" {
			return Order{}, fmt.Errorf("%w: order line id is required", ErrOrderInvalidInput)
		}
		if line.PriceRp != nil && *line.PriceRp < 0 {
			return Order{}, fmt.Errorf("%w: line price cannot be negative", ErrOrderInvalidInput)
		}
		if line.WeightGrams != nil && *line.WeightGrams < 0 {
			return Order{}, fmt.Errorf("%w: line weight cannot be negative", ErrOrderInvalidInput)
		}
		update.Items = append(update.Items, repositories.OrderItemUpdate{
			OrderItemID: line.OrderItemID,
			PriceRp:     line.PriceRp,
			WeightGrams: line.WeightGrams,
		})
	}

	order, err := s.orderRepo.UpdateDetails(ctx, update)
	if errors.Is(err, repositories.ErrNotFound) {
		return Order{}, ErrOrderNotFound
	}
	return order, err
}
