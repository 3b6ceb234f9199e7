package todos

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrTitleRequired = errors.New("title is required")

// Service wraps the repo with the small amount of business logic todos have:
// required fields, partial updates, and reorder validation. Ownership checks
// live in the repo queries themselves.
type Service struct {
	repo Repo
}

func NewService(repo Repo) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[todos.NewService] repo is required")
	}
	return &Service{repo: repo}, nil
}

type CreateParams struct {
	Title       string
	Description string
	Completed   bool
}

func (s *Service) Create(ctx context.Context, userID string, p CreateParams) (*Todo, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	todo := &Todo{
		UserID:      userID,
		Title:       title,
		Description: p.Description,
		Completed:   p.Completed,
	}
	if err := s.repo.Create(ctx, todo); err != nil {
		return nil, fmt.Errorf("[todos.Create] %w", err)
	}
	return todo, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]*Todo, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Todo, error) {
	return s.repo.Get(ctx, userID, id)
}

// UpdateParams carries a partial update; nil fields are left unchanged.
type UpdateParams struct {
	Title       *string
	Description *string
	Completed   *bool
}

func (s *Service) Update(ctx context.Context, userID, id string, p UpdateParams) (*Todo, error) {
	todo, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		todo.Title = title
	}
	if p.Description != nil {
		todo.Description = *p.Description
	}
	if p.Completed != nil {
		todo.Completed = *p.Completed
	}

	if err := s.repo.Update(ctx, todo); err != nil {
		return nil, fmt.Errorf("[todos.Update] %w", err)
	}
	return todo, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}

// Reorder applies the client's new ordering: ids[i] gets position i. Duplicate
// ids or ids the user does not own fail the whole request with ErrNotFound.
func (s *Service) Reorder(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return ErrNotFound
		}
		seen[id] = struct{}{}
	}

	return s.repo.SetPositions(ctx, userID, ids)
}
