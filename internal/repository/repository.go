// Package repository declares the storage contracts the services depend on.
// internal/repository/sqlite provides the only implementation.
package repository

import (
	"context"

	"github.com/sakif/js-playground/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
	// UserID, when set, restricts the listing to one owner's snippets.
	UserID string
}

type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	List(ctx context.Context, opts ListOptions) ([]model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	// Upsert inserts a new user or refreshes the profile of the user with the
	// same GitHubID, filling in ID and timestamps either way.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}
