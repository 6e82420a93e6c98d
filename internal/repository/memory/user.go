package memory

import (
	"context"
	"sort"
	"strings"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/repository"
)

type userRepository struct {
	exec execFunc
}

func userConflict(st *state, u *domain.User) bool {
	for id, other := range st.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(other.Email, u.Email) {
			return true
		}
		if u.CardNumber != "" && other.CardNumber == u.CardNumber {
			return true
		}
	}
	return false
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.exec(func(t *txn) error {
		if _, ok := t.st.users[user.ID]; ok || userConflict(t.st, user) {
			return repository.ErrDuplicateRecord
		}
		user.CreatedOn = t.now
		user.UpdatedOn = t.now
		t.st.users[user.ID] = *user
		t.emit(domain.CollectionUsers, user.ID, domain.ChangeOpCreated)
		return nil
	})
}

func (r *userRepository) find(match func(domain.User) bool) (*domain.User, error) {
	var out *domain.User
	err := r.exec(func(t *txn) error {
		for _, u := range t.st.users {
			if match(u) {
				c := u
				out = &c
				return nil
			}
		}
		return repository.ErrRecordNotFound
	})
	return out, err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.exec(func(t *txn) error {
		u, ok := t.st.users[id]
		if !ok {
			return repository.ErrRecordNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

// Units of work are already serialised, so row locks reduce to plain reads.
func (r *userRepository) GetForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r *userRepository) GetForShare(ctx context.Context, id string) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepository) GetByCardNumber(ctx context.Context, cardNumber string) (*domain.User, error) {
	if cardNumber == "" {
		return nil, repository.ErrRecordNotFound
	}
	return r.find(func(u domain.User) bool { return u.CardNumber == cardNumber })
}

func (r *userRepository) List(ctx context.Context, search string) ([]domain.User, error) {
	q := strings.ToLower(search)
	var users []domain.User
	err := r.exec(func(t *txn) error {
		for _, u := range t.st.users {
			if q == "" ||
				strings.Contains(strings.ToLower(u.Name), q) ||
				strings.Contains(strings.ToLower(u.Email), q) ||
				strings.Contains(strings.ToLower(u.CardNumber), q) {
				users = append(users, u)
			}
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users, err
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	return r.exec(func(t *txn) error {
		current, ok := t.st.users[user.ID]
		if !ok {
			return repository.ErrRecordNotFound
		}
		if userConflict(t.st, user) {
			return repository.ErrDuplicateRecord
		}
		user.CreatedOn = current.CreatedOn
		user.UpdatedOn = t.now
		t.st.users[user.ID] = *user
		t.emit(domain.CollectionUsers, user.ID, domain.ChangeOpUpdated)
		return nil
	})
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	return r.exec(func(t *txn) error {
		if _, ok := t.st.users[id]; !ok {
			return repository.ErrRecordNotFound
		}
		delete(t.st.users, id)
		t.emit(domain.CollectionUsers, id, domain.ChangeOpDeleted)
		return nil
	})
}
