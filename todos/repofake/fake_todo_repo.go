package faketodorepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-todo-server/todos"
)

var _ todos.Repo = (*FakeTodoRepo)(nil)

type FakeTodoRepo struct {
	todos map[string]*todos.Todo
	lock  sync.RWMutex
}

func NewFakeTodoRepo() *FakeTodoRepo {
	return &FakeTodoRepo{todos: make(map[string]*todos.Todo)}
}

func (tr *FakeTodoRepo) Create(_ context.Context, todo *todos.Todo) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	if todo.ID == "" {
		todo.ID = uuid.New().String()
	}
	todo.Position = tr.nextPosition(todo.UserID)
	todo.CreatedAt = time.Now()
	todo.UpdatedAt = todo.CreatedAt

	stored := *todo
	tr.todos[stored.ID] = &stored
	return nil
}

func (tr *FakeTodoRepo) ListByUser(_ context.Context, userID string) ([]*todos.Todo, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	list := make([]*todos.Todo, 0)
	for _, stored := range tr.todos {
		if stored.UserID != userID {
			continue
		}
		t := *stored
		list = append(list, &t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Position != list[j].Position {
			return list[i].Position < list[j].Position
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (tr *FakeTodoRepo) Get(_ context.Context, userID, id string) (*todos.Todo, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	stored, ok := tr.todos[id]
	if !ok || stored.UserID != userID {
		return nil, todos.ErrNotFound
	}
	t := *stored
	return &t, nil
}

func (tr *FakeTodoRepo) Update(_ context.Context, todo *todos.Todo) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	stored, ok := tr.todos[todo.ID]
	if !ok || stored.UserID != todo.UserID {
		return todos.ErrNotFound
	}
	todo.Position = stored.Position
	todo.CreatedAt = stored.CreatedAt
	todo.UpdatedAt = time.Now()

	updated := *todo
	tr.todos[updated.ID] = &updated
	return nil
}

func (tr *FakeTodoRepo) Delete(_ context.Context, userID, id string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	stored, ok := tr.todos[id]
	if !ok || stored.UserID != userID {
		return todos.ErrNotFound
	}
	delete(tr.todos, id)
	return nil
}

func (tr *FakeTodoRepo) SetPositions(_ context.Context, userID string, ids []string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	for _, id := range ids {
		stored, ok := tr.todos[id]
		if !ok || stored.UserID != userID {
			return todos.ErrNotFound
		}
	}
	for i, id := range ids {
		tr.todos[id].Position = i
	}
	return nil
}

func (tr *FakeTodoRepo) nextPosition(userID string) int {
	next := 0
	for _, stored := range tr.todos {
		if stored.UserID == userID && stored.Position >= next {
			next = stored.Position + 1
		}
	}
	return next
}
