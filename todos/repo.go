package todos

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("todo not found")

// Repo owns the todo records. All reads and writes are scoped to a user so
// one user can never see or touch another's todos.
type Repo interface {
	// Create stores a new todo, assigning an ID if it has none and the next
	// position in the owner's list.
	Create(ctx context.Context, todo *Todo) error
	// ListByUser returns the user's todos ordered by position.
	ListByUser(ctx context.Context, userID string) ([]*Todo, error)
	Get(ctx context.Context, userID, id string) (*Todo, error)
	Update(ctx context.Context, todo *Todo) error
	Delete(ctx context.Context, userID, id string) error
	// SetPositions assigns position i to ids[i]. Every id must belong to the
	// user; otherwise ErrNotFound and no position changes.
	SetPositions(ctx context.Context, userID string, ids []string) error
}
