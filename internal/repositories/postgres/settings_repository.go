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

// settingsID is the fixed primary key of the singleton settings row.
const settingsID = "default"

const settingsColumns = `id, exchange_rate, default_margin_percent, total_baggage_quota_grams,
	jastip_status, jastip_close_date, estimated_arrival_date, admin_password_hash,
	item_categories, updated_at`

// SettingsRepository persists the singleton settings row in PostgreSQL.
type SettingsRepository struct {
	db *sql.DB
}

var _ repositories.SettingsRepository = (*SettingsRepository)(nil)

// NewSettingsRepository constructs a SettingsRepository.
func NewSettingsRepository(db *sql.DB) (*SettingsRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: settings repository requires a database handle")
	}
	return &SettingsRepository{db: db}, nil
}

// Get loads the settings row.
func (r *SettingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	query := fmt.Sprintf("SELECT %s FROM settings WHERE id = $1", settingsColumns)
	return scanSettings(r.db.QueryRowContext(ctx, query, settingsID))
}

// Update applies the non-nil fields of the patch and returns the updated row.
func (r *SettingsRepository) Update(ctx context.Context, update repositories.SettingsUpdate) (domain.Settings, error) {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 8)

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.ExchangeRate != nil {
		add("exchange_rate", *update.ExchangeRate)
	}
	if update.DefaultMarginPercent != nil {
		add("default_margin_percent", *update.DefaultMarginPercent)
	}
	if update.TotalBaggageQuotaGrams != nil {
		add("total_baggage_quota_grams", *update.TotalBaggageQuotaGrams)
	}
	if update.JastipStatus != nil {
		add("jastip_status", string(*update.JastipStatus))
	}
	if update.ClearJastipCloseDate {
		sets = append(sets, "jastip_close_date = NULL")
	} else if update.JastipCloseDate != nil {
		add("jastip_close_date", *update.JastipCloseDate)
	}
	if update.EstimatedArrivalDate != nil {
		add("estimated_arrival_date", *update.EstimatedArrivalDate)
	}
	if update.AdminPasswordHash != nil {
		add("admin_password_hash", *update.AdminPasswordHash)
	}
	if update.ItemCategories != nil {
		encoded, err := json.Marshal(*update.ItemCategories)
		if err != nil {
			return domain.Settings{}, fmt.Errorf("postgres: encoding item categories: %w", err)
		}
		add("item_categories", encoded)
	}
	add("updated_at", update.UpdatedAt.UTC())

	args = append(args, settingsID)
	query := fmt.Sprintf("UPDATE settings SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), settingsColumns)

	return scanSettings(r.db.QueryRowContext(ctx, query, args...))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettings(row rowScanner) (domain.Settings, error) {
	var (
		settings   domain.Settings
		closeDate  sql.NullTime
		arrival    sql.NullString
		categories []byte
	)

	err := row.Scan(
		&settings.ID,
		&settings.ExchangeRate,
		&settings.DefaultMarginPercent,
		&settings.TotalBaggageQuotaGrams,
		&settings.JastipStatus,
		&closeDate,
		&arrival,
		&settings.AdminPasswordHash,
		&categories,
		&settings.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Settings{}, repositories.ErrNotFound
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("postgres: scanning settings: %w", err)
	}

	if closeDate.Valid {
		t := closeDate.Time
		settings.JastipCloseDate = &t
	}
	if arrival.Valid {
		s := arrival.String
		settings.EstimatedArrivalDate = &s
	}
	if len(categories) > 0 {
		if err := json.Unmarshal(categories, &settings.ItemCategories); err != nil {
			return domain.Settings{}, fmt.Errorf("postgres: decoding item categories: %w", err)
		}
	}
	if settings.ItemCategories == nil {
		settings.ItemCategories = []string{}
	}

	return settings, nil
}
