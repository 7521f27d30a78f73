package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/js-playground/internal/apperror"
	"github.com/sakif/js-playground/internal/auth"
	"github.com/sakif/js-playground/internal/model"
	"github.com/sakif/js-playground/internal/service"
)

// SnippetManager is the part of service.SnippetService the handler uses.
type SnippetManager interface {
	Create(ctx context.Context, userID string, in service.SnippetInput) (*model.Snippet, error)
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	List(ctx context.Context, userID string, limit, offset int) ([]model.Snippet, error)
	Update(ctx context.Context, userID, id string, in service.SnippetInput) (*model.Snippet, error)
	Delete(ctx context.Context, userID, id string) error
}

type SnippetHandler struct {
	snippets  SnippetManager
	validator *Validator
	logger    *slog.Logger
}

func NewSnippetHandler(snippets SnippetManager, validator *Validator, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{
		snippets:  snippets,
		validator: validator,
		logger:    logger,
	}
}

// HandleList serves GET /api/snippets?limit=&offset=&mine=true.
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		writeError(w, apperror.ValidationFailed("limit", "limit must be a number"))
		return
	}
	offset, err := queryInt(q.Get("offset"))
	if err != nil {
		writeError(w, apperror.ValidationFailed("offset", "offset must be a number"))
		return
	}

	var owner string
	if q.Get("mine") == "true" {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "log in to list your own snippets",
			})
			return
		}
		owner = userID
	}

	snippets, err := h.snippets.List(r.Context(), owner, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippets)
}

func (h *SnippetHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.snippets.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req SnippetRequest
	if err := h.validator.decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	snippet, err := h.snippets.Create(r.Context(), userID, req.input())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Location", "/api/snippets/"+snippet.ID)
	writeJSON(w, http.StatusCreated, snippet)
}

func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req SnippetRequest
	if err := h.validator.decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	snippet, err := h.snippets.Update(r.Context(), userID, chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.snippets.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (req SnippetRequest) input() service.SnippetInput {
	return service.SnippetInput{
		Name:        req.Name,
		Description: req.Description,
		Code:        req.Code,
		Mode:        req.Mode,
	}
}

// queryInt parses an optional integer query parameter; "" is 0.
func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
