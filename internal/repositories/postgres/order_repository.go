package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/dkotama/jastip-api/internal/domain"
	pg "github.com/dkotama/jastip-api/internal/platform/postgres"
	"github.com/dkotama/jastip-api/internal/repositories"
)

const orderColumns = `id, user_id, status, total_price_rp, total_price_yen,
	total_weight_grams, note, created_at, updated_at`

const orderItemColumns = `id, order_id, item_id, name, quantity, price_yen,
	price_rp, weight_grams, is_custom, custom_url, custom_note, source`

// OrderRepository persists orders and their lines in PostgreSQL. It owns the
// transactional boundaries around slot reservation and status transitions.
type OrderRepository struct {
	db *sql.DB
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs an OrderRepository.
func NewOrderRepository(db *sql.DB) (*OrderRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: order repository requires a database handle")
	}
	return &OrderRepository{db: db}, nil
}

// Create inserts the order and its lines and reserves catalog slots for every
// catalog line, all in one transaction. An item without enough free slots
// fails the whole order with ErrSlotsExhausted.
func (r *OrderRepository) Create(ctx context.Context, order domain.Order) error {
	return pg.WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, user_id, status, total_price_rp, total_price_yen,
				total_weight_grams, note, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			order.ID, order.UserID, string(order.Status), order.TotalPriceRp,
			order.TotalPriceYen, order.TotalWeightGrams, order.Note,
			order.CreatedAt.UTC(), order.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("postgres: inserting order: %w", err)
		}

		for position, line := range order.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, item_id, name, quantity, price_yen,
					price_rp, weight_grams, is_custom, custom_url, custom_note, source, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
				line.ID, order.ID, line.ItemID, line.Name, line.Quantity, line.PriceYen,
				line.PriceRp, line.WeightGrams, line.IsCustom, line.CustomURL,
				line.CustomNote, line.Source, position,
			)
			if err != nil {
				return fmt.Errorf("postgres: inserting order line: %w", err)
			}
		}

		for itemID, quantity := range catalogQuantities(order.Items) {
			if err := reserveSlots(ctx, tx, itemID, quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID loads an order with its lines in position order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE id = $1", orderColumns)
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID))
	if err != nil {
		return domain.Order{}, err
	}

	items, err := r.loadLines(ctx, []string{order.ID})
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items[order.ID]
	return order, nil
}

// List returns orders matching the filter, newest first, with their lines.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders", orderColumns)
	var (
		clauses []string
		args    []any
	)

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	ids := make([]string, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = lines[orders[i].ID]
	}
	return orders, nil
}

// UpdateStatus validates the workflow transition against the current row,
// applies it, and releases the reserved catalog slots when the order is
// cancelled.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, to domain.OrderStatus, at time.Time) (domain.Order, error) {
	var updated domain.Order
	err := pg.WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			"SELECT status FROM orders WHERE id = $1 FOR UPDATE",
			orderID,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return repositories.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("postgres: loading order status: %w", err)
		}

		if err := domain.ValidateTransition(domain.OrderStatus(current), to); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1",
			orderID, string(to), at.UTC(),
		)
		if err != nil {
			return fmt.Errorf("postgres: updating order status: %w", err)
		}

		if to == domain.OrderCancelled {
			if err := releaseOrderSlots(ctx, tx, orderID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	updated, err = r.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return updated, nil
}

// UpdateDetails applies an admin correction of totals and per-line snapshots
// after the real-world purchase.
func (r *OrderRepository) UpdateDetails(ctx context.Context, update repositories.OrderDetailsUpdate) (domain.Order, error) {
	err := pg.WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		sets := []string{"updated_at = $2"}
		args := []any{update.OrderID, update.UpdatedAt.UTC()}
		add := func(column string, value any) {
			args = append(args, value)
			sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
		}

		if update.TotalPriceRp != nil {
			add("total_price_rp", *update.TotalPriceRp)
		}
		if update.TotalPriceYen != nil {
			add("total_price_yen", *update.TotalPriceYen)
		}
		if update.TotalWeightGrams != nil {
			add("total_weight_grams", *update.TotalWeightGrams)
		}
		if update.Note != nil {
			add("note", *update.Note)
		}

		query := fmt.Sprintf("UPDATE orders SET %s WHERE id = $1", strings.Join(sets, ", "))
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("postgres: updating order details: %w", err)
		}
		if err := requireRowAffected(result, repositories.ErrNotFound); err != nil {
			return err
		}

		for _, line := range update.Items {
			if line.PriceRp == nil && line.WeightGrams == nil {
				continue
			}
			lineSets := make([]string, 0, 2)
			lineArgs := []any{line.OrderItemID, update.OrderID}
			addLine := func(column string, value any) {
				lineArgs = append(lineArgs, value)
				lineSets = append(lineSets, fmt.Sprintf("%s = $%d", column, len(lineArgs)))
			}
			if line.PriceRp != nil {
				addLine("price_rp", *line.PriceRp)
			}
			if line.WeightGrams != nil {
				addLine("weight_grams", *line.WeightGrams)
			}

			lineQuery := fmt.Sprintf(
				"UPDATE order_items SET %s WHERE id = $1 AND order_id = $2",
				strings.Join(lineSets, ", "),
			)
			result, err := tx.ExecContext(ctx, lineQuery, lineArgs...)
			if err != nil {
				return fmt.Errorf("postgres: updating order line: %w", err)
			}
			if err := requireRowAffected(result, repositories.ErrNotFound); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return r.FindByID(ctx, update.OrderID)
}

func (r *OrderRepository) loadLines(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	placeholders := make([]string, len(orderIDs))
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(
		"SELECT %s FROM order_items WHERE order_id IN (%s) ORDER BY order_id, position",
		orderItemColumns, strings.Join(placeholders, ", "),
	)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: loading order lines: %w", err)
	}
	defer rows.Close()

	lines := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var line domain.OrderItem
		err := rows.Scan(
			&line.ID, &line.OrderID, &line.ItemID, &line.Name, &line.Quantity,
			&line.PriceYen, &line.PriceRp, &line.WeightGrams, &line.IsCustom,
			&line.CustomURL, &line.CustomNote, &line.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning order line: %w", err)
		}
		lines[line.OrderID] = append(lines[line.OrderID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating order lines: %w", err)
	}
	return lines, nil
}

// catalogQuantities aggregates ordered quantities per catalog item, skipping
// custom lines.
func catalogQuantities(items []domain.OrderItem) map[string]int64 {
	quantities := make(map[string]int64)
	for _, line := range items {
		if line.IsCustom || line.ItemID == "" {
			continue
		}
		quantities[line.ItemID] += line.Quantity
	}
	return quantities
}

func reserveSlots(ctx context.Context, tx *sql.Tx, itemID string, quantity int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE items SET current_orders = current_orders + $2
		WHERE id = $1 AND current_orders + $2 <= max_orders`,
		itemID, quantity,
	)
	if err != nil {
		return fmt.Errorf("postgres: reserving item slots: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if affected == 0 {
		return repositories.ErrSlotsExhausted
	}
	return nil
}

func releaseOrderSlots(ctx context.Context, tx *sql.Tx, orderID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE items SET current_orders = GREATEST(current_orders - released.quantity, 0)
		FROM (
			SELECT item_id, SUM(quantity) AS quantity
			FROM order_items
			WHERE order_id = $1 AND is_custom = FALSE AND item_id <> ''
			GROUP BY item_id
		) AS released
		WHERE items.id = released.item_id`,
		orderID,
	)
	if err != nil {
		return fmt.Errorf("postgres: releasing item slots: %w", err)
	}
	return nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID, &order.UserID, &order.Status, &order.TotalPriceRp,
		&order.TotalPriceYen, &order.TotalWeightGrams, &order.Note,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, repositories.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("postgres: scanning order: %w", err)
	}
	return order, nil
}
