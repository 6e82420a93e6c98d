package service

import (
	"context"
	"errors"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/repository"
)

type settingsService struct {
	store    repository.Store
	defaults domain.Settings
}

// NewSettingsService serves the stored library settings, falling back to
// defaults until an admin saves them.
func NewSettingsService(store repository.Store, defaults domain.Settings) SettingsService {
	if defaults.LoanPeriodDays <= 0 {
		defaults.LoanPeriodDays = domain.DefaultLoanPeriodDays
	}
	if defaults.RenewPeriodDays <= 0 {
		defaults.RenewPeriodDays = domain.DefaultRenewPeriodDays
	}
	return &settingsService{store: store, defaults: defaults}
}

func (s *settingsService) GetSettings(ctx context.Context) (domain.Settings, error) {
	stored, err := s.store.Settings().Get(ctx)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return domain.Settings{}, err
	}
	return *stored, nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, actor domain.Actor, settings domain.Settings) (*domain.Settings, error) {
	logger.EnterMethod("settingsService.UpdateSettings", "loanDays", settings.LoanPeriodDays, "renewDays", settings.RenewPeriodDays)
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if settings.AppName == "" {
		settings.AppName = s.defaults.AppName
	}
	if err := validateStruct(settings); err != nil {
		return nil, err
	}
	if err := s.store.Settings().Upsert(ctx, &settings); err != nil {
		logger.ExitMethodWithError("settingsService.UpdateSettings", err)
		return nil, err
	}
	logger.InfoContext(ctx, "library settings updated", "actor", actor.UserID,
		"loan_period_days", settings.LoanPeriodDays, "renew_period_days", settings.RenewPeriodDays)
	return &settings, nil
}
