package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"PriceNewsScanner/internal/domain"
	"PriceNewsScanner/internal/ports"
)

// UserRepository stores API accounts.
type UserRepository struct {
	db  *DB
	now func() time.Time
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// Create inserts a user; a taken username yields domain.ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string) (domain.User, error) {
	user := domain.User{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UTC(),
	}

	query, args, err := r.db.sb.
		Insert("users").
		Columns("username", "password_hash", "created_at").
		Values(user.Username, user.PasswordHash, user.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return domain.User{}, fmt.Errorf("build insert: %w", err)
	}

	if err := r.db.conn.GetContext(ctx, &user.ID, query, args...); err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrUserExists
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetByUsername returns domain.ErrNotFound for unknown names.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.get(ctx, sq.Eq{"username": username})
}

// GetByID returns domain.ErrNotFound for unknown ids.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	return r.get(ctx, sq.Eq{"id": id})
}

func (r *UserRepository) get(ctx context.Context, pred sq.Eq) (domain.User, error) {
	query, args, err := r.db.sb.
		Select("id", "username", "password_hash", "created_at").
		From("users").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return domain.User{}, fmt.Errorf("build select: %w", err)
	}

	var user domain.User
	err = r.db.conn.GetContext(ctx, &user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}
