package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jrsteele09/go-todo-server/todos"
)

var _ todos.Repo = (*TodoRepo)(nil)

type TodoRepo struct {
	db *DB
}

func NewTodoRepo(db *DB) *TodoRepo { return &TodoRepo{db: db} }

const (
	qTodoInsert = `
INSERT INTO todos (id, user_id, title, description, completed, position)
VALUES ($1, $2, $3, $4, $5,
        (SELECT COALESCE(MAX(position) + 1, 0) FROM todos WHERE user_id = $2))
RETURNING position, created_at, updated_at;`

	qTodoListByUser = `
SELECT id, user_id, title, description, completed, position, created_at, updated_at
FROM todos
WHERE user_id = $1
ORDER BY position, created_at;`

	qTodoGet = `
SELECT id, user_id, title, description, completed, position, created_at, updated_at
FROM todos
WHERE id = $1 AND user_id = $2;`

	qTodoUpdate = `
UPDATE todos
SET title       = $3,
    description = $4,
    completed   = $5,
    updated_at  = NOW()
WHERE id = $1 AND user_id = $2
RETURNING updated_at;`

	qTodoDelete = `
DELETE FROM todos WHERE id = $1 AND user_id = $2;`

	qTodoSetPosition = `
UPDATE todos SET position = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2;`
)

func (r *TodoRepo) Create(ctx context.Context, t *todos.Todo) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	if err := r.db.Pool.QueryRow(ctx, qTodoInsert, t.ID, t.UserID, t.Title, t.Description, t.Completed).
		Scan(&t.Position, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("todo insert: %w", err)
	}
	return nil
}

func (r *TodoRepo) ListByUser(ctx context.Context, userID string) ([]*todos.Todo, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qTodoListByUser, userID)
	if err != nil {
		return nil, fmt.Errorf("todo list: %w", err)
	}
	defer rows.Close()

	list := make([]*todos.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("todo list rows: %w", err)
	}
	return list, nil
}

func (r *TodoRepo) Get(ctx context.Context, userID, id string) (*todos.Todo, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	t, err := scanTodo(r.db.Pool.QueryRow(ctx, qTodoGet, id, userID))
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TodoRepo) Update(ctx context.Context, t *todos.Todo) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.Pool.QueryRow(ctx, qTodoUpdate, t.ID, t.UserID, t.Title, t.Description, t.Completed).
		Scan(&t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return todos.ErrNotFound
		}
		return fmt.Errorf("todo update: %w", err)
	}
	return nil
}

func (r *TodoRepo) Delete(ctx context.Context, userID, id string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qTodoDelete, id, userID)
	if err != nil {
		return fmt.Errorf("todo delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return todos.ErrNotFound
	}
	return nil
}

// SetPositions runs in a single transaction so a reorder containing an id the
// user does not own applies nothing.
func (r *TodoRepo) SetPositions(ctx context.Context, userID string, ids []string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("todo reorder begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, id := range ids {
		tag, err := tx.Exec(ctx, qTodoSetPosition, id, userID, i)
		if err != nil {
			return fmt.Errorf("todo reorder: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return todos.ErrNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("todo reorder commit: %w", err)
	}
	return nil
}

func scanTodo(row pgx.Row) (*todos.Todo, error) {
	var t todos.Todo
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed,
		&t.Position, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, todos.ErrNotFound
		}
		return nil, fmt.Errorf("scan todo: %w", err)
	}
	return &t, nil
}
