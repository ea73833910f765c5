package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/repositories"
)

var (
	// ErrSettingsInvalidInput indicates the caller supplied an invalid settings field.
	ErrSettingsInvalidInput = errors.New("settings: invalid input")
	// ErrAdminPasswordMismatch indicates the supplied admin password is wrong.
	ErrAdminPasswordMismatch = errors.New("settings: admin password mismatch")
)

// SettingsServiceDeps bundles collaborators required to construct a settings service.
type SettingsServiceDeps struct {
	Settings repositories.SettingsRepository
	Items    repositories.ItemRepository
	Clock    func() time.Time
}

type settingsService struct {
	settingsRepo repositories.SettingsRepository
	itemRepo     repositories.ItemRepository
	clock        func() time.Time
}

var _ SettingsService = (*settingsService)(nil)

// NewSettingsService constructs a service managing the singleton settings row.
func NewSettingsService(deps SettingsServiceDeps) (SettingsService, error) {
	if deps.Settings == nil {
		return nil, errors.New("settings service: settings repository is required")
	}
	if deps.Items == nil {
		return nil, errors.New("settings service: item repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &settingsService{
		settingsRepo: deps.Settings,
		itemRepo:     deps.Items,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

func (s *settingsService) Get(ctx context.Context) (Settings, error) {
	return s.settingsRepo.Get(ctx)
}

func (s *settingsService) Update(ctx context.Context, cmd UpdateSettingsCommand) (Settings, error) {
	update := repositories.SettingsUpdate{UpdatedAt: s.clock()}

	if cmd.ExchangeRate != nil {
		if *cmd.ExchangeRate <= 0 {
			return Settings{}, fmt.Errorf("%w: exchange rate must be positive", ErrSettingsInvalidInput)
		}
		update.ExchangeRate = cmd.ExchangeRate
	}
	if cmd.DefaultMarginPercent != nil {
		if *cmd.DefaultMarginPercent < 0 {
			return Settings{}, fmt.Errorf("%w: margin percent cannot be negative", ErrSettingsInvalidInput)
		}
		update.DefaultMarginPercent = cmd.DefaultMarginPercent
	}
	if cmd.TotalBaggageQuotaGrams != nil {
		if *cmd.TotalBaggageQuotaGrams < 0 {
			return Settings{}, fmt.Errorf("%w: baggage quota cannot be negative", ErrSettingsInvalidInput)
		}
		update.TotalBaggageQuotaGrams = cmd.TotalBaggageQuotaGrams
	}
	if cmd.JastipStatus != nil {
		status := domain.JastipStatus(strings.TrimSpace(*cmd.JastipStatus))
		if status != domain.JastipOpen && status != domain.JastipClosed {
			return Settings{}, fmt.Errorf("%w: unknown jastip status %q", ErrSettingsInvalidInput, *cmd.JastipStatus)
		}
		update.JastipStatus = &status
	}
	if cmd.ClearJastipCloseDate {
		update.ClearJastipCloseDate = true
	} else if cmd.JastipCloseDate != nil {
		closeDate := cmd.JastipCloseDate.UTC()
		update.JastipCloseDate = &closeDate
	}
	if cmd.EstimatedArrivalDate != nil {
		update.EstimatedArrivalDate = cmd.EstimatedArrivalDate
	}
	if cmd.AdminPassword != nil {
		password := *cmd.AdminPassword
		if len(password) < 8 {
			return Settings{}, fmt.Errorf("%w: admin password must be at least 8 characters", ErrSettingsInvalidInput)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return Settings{}, fmt.Errorf("settings service: hashing admin password: %w", err)
		}
		hashed := string(hash)
		update.AdminPasswordHash = &hashed
	}
	if cmd.ItemCategories != nil {
		categories := make([]string, 0, len(*cmd.ItemCategories))
		for _, category := range *cmd.ItemCategories {
			category = strings.TrimSpace(category)
			if category == "" {
				return Settings{}, fmt.Errorf("%w: item categories cannot be blank", ErrSettingsInvalidInput)
			}
			categories = append(categories, category)
		}
		update.ItemCategories = &categories
	}

	return s.settingsRepo.Update(ctx, update)
}

func (s *settingsService) PublicConfig(ctx context.Context) (PublicConfig, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return PublicConfig{}, err
	}

	used, err := s.itemRepo.UsedQuotaGrams(ctx)
	if err != nil {
		return PublicConfig{}, err
	}

	now := s.clock()
	remaining := domain.RemainingQuotaGrams(settings.TotalBaggageQuotaGrams, used)
	return PublicConfig{
		JastipStatus:         settings.JastipStatus,
		CountdownDays:        domain.CountdownDays(settings.JastipStatus, settings.JastipCloseDate, now),
		RemainingQuotaKg:     domain.QuotaKg(remaining),
		TotalQuotaKg:         domain.TotalQuotaKg(settings.TotalBaggageQuotaGrams),
		EstimatedArrivalDate: settings.EstimatedArrivalDate,
	}, nil
}

func (s *settingsService) VerifyAdminPassword(ctx context.Context, password string) error {
	hash, err := s.AdminPasswordHash(ctx)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrAdminPasswordMismatch
	}
	return nil
}

func (s *settingsService) AdminPasswordHash(ctx context.Context) (string, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return "", err
	}
	if settings.AdminPasswordHash == "" {
		return "", errors.New("settings service: admin password not configured")
	}
	return settings.AdminPasswordHash, nil
}
