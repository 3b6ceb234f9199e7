package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jrsteele09/go-todo-server/users"
)

var _ users.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	qUserInsert = `
INSERT INTO users (id, username, password_hash)
VALUES ($1, $2, $3)
RETURNING created_at;`

	qUserByUsername = `
SELECT id, username, password_hash, COALESCE(refresh_token, ''), created_at
FROM users
WHERE username = $1;`

	qUserByID = `
SELECT id, username, password_hash, COALESCE(refresh_token, ''), created_at
FROM users
WHERE id = $1;`

	qUserSetRefreshToken = `
UPDATE users SET refresh_token = NULLIF($2, '') WHERE id = $1;`
)

func (r *UserRepo) Create(ctx context.Context, u *users.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if u.ID == "" {
		u.ID = uuid.New().String()
	}

	if err := r.db.Pool.QueryRow(ctx, qUserInsert, u.ID, u.Username, u.PasswordHash).
		Scan(&u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return users.ErrAlreadyExists
		}
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanUser(r.db.Pool.QueryRow(ctx, qUserByUsername, username))
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanUser(r.db.Pool.QueryRow(ctx, qUserByID, id))
}

func (r *UserRepo) SetRefreshToken(ctx context.Context, id, refreshToken string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qUserSetRefreshToken, id, refreshToken)
	if err != nil {
		return fmt.Errorf("user set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*users.User, error) {
	var u users.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.RefreshToken, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
