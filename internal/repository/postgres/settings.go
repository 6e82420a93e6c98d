package postgres

import (
	"context"
	"time"

	"shelfkeeper-backend/internal/domain"
)

type settingsRepository struct {
	q dbtx
}

func (r *settingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	s := &domain.Settings{}
	err := r.q.QueryRowContext(ctx, `SELECT app_name, loan_period_days, renew_period_days, updated_on FROM settings WHERE id = 1`).
		Scan(&s.AppName, &s.LoanPeriodDays, &s.RenewPeriodDays, &s.UpdatedOn)
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, s *domain.Settings) error {
	query := `INSERT INTO settings (id, app_name, loan_period_days, renew_period_days, updated_on)
	          VALUES (1, $1, $2, $3, $4)
	          ON CONFLICT (id) DO UPDATE SET app_name = EXCLUDED.app_name, loan_period_days = EXCLUDED.loan_period_days,
	          renew_period_days = EXCLUDED.renew_period_days, updated_on = EXCLUDED.updated_on`
	now := time.Now().UTC()
	if _, err := r.q.ExecContext(ctx, query, s.AppName, s.LoanPeriodDays, s.RenewPeriodDays, now); err != nil {
		return mapError(err)
	}
	s.UpdatedOn = now
	return notify(ctx, r.q, domain.CollectionSettings, "library", domain.ChangeOpUpdated)
}
