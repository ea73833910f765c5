package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/repositories"
)

const itemColumns = `id, name, description, category, photos, base_price_yen, base_price_rp,
	selling_price_rp, weight_grams, max_orders, current_orders, is_available, is_draft,
	without_box_note, is_limited_edition, is_preorder, is_fragile, info_notes, view_count,
	created_at, updated_at`

// ItemRepository persists catalog items in PostgreSQL.
type ItemRepository struct {
	db *sql.DB
}

var _ repositories.ItemRepository = (*ItemRepository)(nil)

// NewItemRepository constructs an ItemRepository.
func NewItemRepository(db *sql.DB) (*ItemRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: item repository requires a database handle")
	}
	return &ItemRepository{db: db}, nil
}

// Insert stores a new item.
func (r *ItemRepository) Insert(ctx context.Context, item domain.Item) error {
	photos, notes, err := encodeItemJSON(item)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO items (id, name, description, category, photos, base_price_yen, base_price_rp,
			selling_price_rp, weight_grams, max_orders, current_orders, is_available, is_draft,
			without_box_note, is_limited_edition, is_preorder, is_fragile, info_notes, view_count,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		item.ID, item.Name, item.Description, item.Category, photos,
		item.BasePriceYen, item.BasePriceRp, item.SellingPriceRp, item.WeightGrams,
		item.MaxOrders, item.CurrentOrders, item.IsAvailable, item.IsDraft,
		item.WithoutBoxNote, item.IsLimitedEdition, item.IsPreorder, item.IsFragile,
		notes, item.ViewCount, item.CreatedAt.UTC(), item.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: inserting item: %w", err)
	}
	return nil
}

// Update replaces the mutable columns of an existing item.
func (r *ItemRepository) Update(ctx context.Context, item domain.Item) error {
	photos, notes, err := encodeItemJSON(item)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE items SET name = $2, description = $3, category = $4, photos = $5,
			base_price_yen = $6, base_price_rp = $7, selling_price_rp = $8, weight_grams = $9,
			max_orders = $10, is_available = $11, is_draft = $12, without_box_note = $13,
			is_limited_edition = $14, is_preorder = $15, is_fragile = $16, info_notes = $17,
			updated_at = $18
		WHERE id = $1`,
		item.ID, item.Name, item.Description, item.Category, photos,
		item.BasePriceYen, item.BasePriceRp, item.SellingPriceRp, item.WeightGrams,
		item.MaxOrders, item.IsAvailable, item.IsDraft, item.WithoutBoxNote,
		item.IsLimitedEdition, item.IsPreorder, item.IsFragile, notes, item.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: updating item: %w", err)
	}
	return requireRowAffected(result, repositories.ErrNotFound)
}

// FindByID loads a single item.
func (r *ItemRepository) FindByID(ctx context.Context, itemID string) (domain.Item, error) {
	query := fmt.Sprintf("SELECT %s FROM items WHERE id = $1", itemColumns)
	return scanItem(r.db.QueryRowContext(ctx, query, itemID))
}

// List returns items matching the filter, newest first.
func (r *ItemRepository) List(ctx context.Context, filter repositories.ItemListFilter) ([]domain.Item, error) {
	query := fmt.Sprintf("SELECT %s FROM items", itemColumns)
	var (
		clauses []string
		args    []any
	)

	if filter.OnlyAvailable {
		clauses = append(clauses, "is_available = TRUE")
	}
	if filter.OnlyPublished {
		clauses = append(clauses, "is_draft = FALSE")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating items: %w", err)
	}
	return items, nil
}

// Delete removes an item permanently.
func (r *ItemRepository) Delete(ctx context.Context, itemID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM items WHERE id = $1", itemID)
	if err != nil {
		return fmt.Errorf("postgres: deleting item: %w", err)
	}
	return requireRowAffected(result, repositories.ErrNotFound)
}

// IncrementViewCount bumps the view counter atomically and returns the new value.
func (r *ItemRepository) IncrementViewCount(ctx context.Context, itemID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"UPDATE items SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count",
		itemID,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repositories.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: incrementing view count: %w", err)
	}
	return count, nil
}

// UsedQuotaGrams sums the committed baggage weight of the storefront item set.
func (r *ItemRepository) UsedQuotaGrams(ctx context.Context) (int64, error) {
	var used int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(weight_grams * current_orders), 0)
		FROM items
		WHERE is_available = TRUE AND is_draft = FALSE`,
	).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("postgres: summing used quota: %w", err)
	}
	return used, nil
}

func encodeItemJSON(item domain.Item) ([]byte, []byte, error) {
	photos := item.Photos
	if photos == nil {
		photos = []string{}
	}
	encodedPhotos, err := json.Marshal(photos)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: encoding item photos: %w", err)
	}

	notes := item.InfoNotes
	if notes == nil {
		notes = []domain.InfoNote{}
	}
	encodedNotes, err := json.Marshal(notes)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: encoding item info notes: %w", err)
	}
	return encodedPhotos, encodedNotes, nil
}

func scanItem(row rowScanner) (domain.Item, error) {
	var (
		item   domain.Item
		photos []byte
		notes  []byte
	)

	err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.Category, &photos,
		&item.BasePriceYen, &item.BasePriceRp, &item.SellingPriceRp, &item.WeightGrams,
		&item.MaxOrders, &item.CurrentOrders, &item.IsAvailable, &item.IsDraft,
		&item.WithoutBoxNote, &item.IsLimitedEdition, &item.IsPreorder, &item.IsFragile,
		&notes, &item.ViewCount, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, repositories.ErrNotFound
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("postgres: scanning item: %w", err)
	}

	if len(photos) > 0 {
		if err := json.Unmarshal(photos, &item.Photos); err != nil {
			return domain.Item{}, fmt.Errorf("postgres: decoding item photos: %w", err)
		}
	}
	if item.Photos == nil {
		item.Photos = []string{}
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &item.InfoNotes); err != nil {
			return domain.Item{}, fmt.Errorf("postgres: decoding item info notes: %w", err)
		}
	}
	if item.InfoNotes == nil {
		item.InfoNotes = []domain.InfoNote{}
	}

	return item, nil
}

func requireRowAffected(result sql.Result, missing error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if affected == 0 {
		return missing
	}
	return nil
}
