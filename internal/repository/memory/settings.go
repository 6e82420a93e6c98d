package memory

import (
	"context"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/repository"
)

type settingsRepository struct {
	exec execFunc
}

func (r *settingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	var out *domain.Settings
	err := r.exec(func(t *txn) error {
		if t.st.settings == nil {
			return repository.ErrRecordNotFound
		}
		s := *t.st.settings
		out = &s
		return nil
	})
	return out, err
}

func (r *settingsRepository) Upsert(ctx context.Context, settings *domain.Settings) error {
	return r.exec(func(t *txn) error {
		settings.UpdatedOn = t.now
		s := *settings
		t.st.settings = &s
		t.emit(domain.CollectionSettings, "library", domain.ChangeOpUpdated)
		return nil
	})
}
