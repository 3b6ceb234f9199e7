package server

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/go-todo-server/todos"
)

type createTodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

type updateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

type reorderTodosRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) CreateTodoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
			return
		}

		var req createTodoRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}

		todo, err := s.todos.Create(r.Context(), userID, todos.CreateParams{
			Title:       req.Title,
			Description: req.Description,
			Completed:   req.Completed,
		})
		if err != nil {
			if errors.Is(err, todos.ErrTitleRequired) {
				writeError(w, http.StatusBadRequest, "invalid_request", "title is required")
				return
			}
			writeInternalError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, todo)
	}
}

func (s *Server) ListTodosHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
			return
		}

		list, err := s.todos.List(r.Context(), userID)
		if err != nil {
			writeInternalError(w, err)
			return
		}
		if list == nil {
			list = []*todos.Todo{}
		}

		writeJSON(w, http.StatusOK, list)
	}
}

func (s *Server) GetTodoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
			return
		}

		todo, err := s.todos.Get(r.Context(), userID, r.PathValue("id"))
		if err != nil {
			if errors.Is(err, todos.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "todo not found")
				return
			}
			writeInternalError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, todo)
	}
}

func (s *Server) UpdateTodoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
			return
		}

		var req updateTodoRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}

		todo, err := s.todos.Update(r.Context(), userID, r.PathValue("id"), todos.UpdateParams{
			Title:       req.Title,
			Description: req.Description,
			Completed:   req.Completed,
		})
		if err != nil {
			switch {
			case errors.Is(err, todos.ErrNotFound):
				writeError(w, http.StatusNotFound, "not_found", "todo not found")
			case errors.Is(err, todos.ErrTitleRequired):
				writeError(w, http.StatusBadRequest, "invalid_request", "title cannot be empty")
			default:
				writeInternalError(w, err)
			}
			return
		}

		writeJSON(w, http.StatusOK, todo)
	}
}

func (s *Server) DeleteTodoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
			return
		}

		if err := s.todos.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
			if errors.Is(err, todos.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "todo not found")
				return
			}
			writeInternalError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func (s *Server) ReorderTodosHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
			return
		}

		var req reorderTodosRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}

		if err := s.todos.Reorder(r.Context(), userID, req.IDs); err != nil {
			if errors.Is(err, todos.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "one or more todos not found")
				return
			}
			writeInternalError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
	}
}
