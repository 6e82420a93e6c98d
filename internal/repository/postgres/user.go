package postgres

import (
	"context"
	"time"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/repository"
)

type userRepository struct {
	q dbtx
}

const userColumns = `id, name, email, phone, address, COALESCE(card_number, ''), password_hash, role, is_locked, created_on, updated_on`

func scanUser(row scanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address, &u.CardNumber, &u.PasswordHash,
		&u.Role, &u.IsLocked, &u.CreatedOn, &u.UpdatedOn)
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, name, email, phone, address, card_number, password_hash, role, is_locked, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.Phone, u.Address, nullString(u.CardNumber),
		u.PasswordHash, u.Role, u.IsLocked, now)
	if err != nil {
		return mapError(err)
	}
	u.CreatedOn = now
	u.UpdatedOn = now
	return notify(ctx, r.q, domain.CollectionUsers, u.ID, domain.ChangeOpCreated)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *userRepository) GetForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

func (r *userRepository) GetForShare(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR SHARE`, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *userRepository) GetByCardNumber(ctx context.Context, cardNumber string) (*domain.User, error) {
	if cardNumber == "" {
		return nil, repository.ErrRecordNotFound
	}
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE card_number = $1`, cardNumber))
}

func (r *userRepository) List(ctx context.Context, search string) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if search != "" {
		query += ` WHERE name ILIKE $1 OR email ILIKE $1 OR card_number ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name, id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query := `UPDATE users SET name=$1, email=$2, phone=$3, address=$4, card_number=$5, password_hash=$6, role=$7, is_locked=$8, updated_on=$9 WHERE id=$10`
	now := time.Now().UTC()
	err := execAffecting(ctx, r.q, "UpdateUser", query, u.Name, u.Email, u.Phone, u.Address, nullString(u.CardNumber),
		u.PasswordHash, u.Role, u.IsLocked, now, u.ID)
	if err != nil {
		return err
	}
	u.UpdatedOn = now
	return notify(ctx, r.q, domain.CollectionUsers, u.ID, domain.ChangeOpUpdated)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	if err := execAffecting(ctx, r.q, "DeleteUser", `DELETE FROM users WHERE id = $1`, id); err != nil {
		return err
	}
	return notify(ctx, r.q, domain.CollectionUsers, id, domain.ChangeOpDeleted)
}
