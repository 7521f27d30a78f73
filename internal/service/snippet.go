// Package service holds the business rules between HTTP handlers and storage
// or execution backends. Services validate input, enforce ownership and
// return apperror values the handlers translate into status codes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/js-playground/internal/apperror"
	"github.com/sakif/js-playground/internal/executor"
	"github.com/sakif/js-playground/internal/model"
	"github.com/sakif/js-playground/internal/repository"
)

const (
	MaxSnippetNameLength = 100
	MaxDescriptionLength = 1000
	MaxCodeLength        = 100000
	DefaultListLimit     = 20
	MaxListLimit         = 100
)

// SnippetInput is the user-editable part of a snippet.
type SnippetInput struct {
	Name        string
	Description string
	Code        string
	Mode        string
}

type SnippetService struct {
	repo   repository.SnippetRepository
	logger *slog.Logger
}

func NewSnippetService(repo repository.SnippetRepository, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:   repo,
		logger: logger,
	}
}

// normalize trims and validates in, filling the default mode.
func (in *SnippetInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if in.Name == "" {
		return apperror.ValidationFailed("name", "snippet name is required")
	}
	if len(in.Name) > MaxSnippetNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("snippet name must be %d characters or less", MaxSnippetNameLength))
	}
	if len(in.Description) > MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	if len(in.Code) > MaxCodeLength {
		return apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}

	mode, err := parseMode(in.Mode)
	if err != nil {
		return err
	}
	in.Mode = string(mode)
	return nil
}

// parseMode accepts "" as units.
func parseMode(s string) (executor.Mode, error) {
	switch executor.Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", executor.ModeUnits:
		return executor.ModeUnits, nil
	case executor.ModeScript:
		return executor.ModeScript, nil
	default:
		return "", apperror.ValidationFailed("mode",
			fmt.Sprintf("mode must be %q or %q", executor.ModeUnits, executor.ModeScript))
	}
}

// Create saves a new snippet owned by userID ("" for anonymous).
func (s *SnippetService) Create(ctx context.Context, userID string, in SnippetInput) (*model.Snippet, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		Code:        in.Code,
		Mode:        in.Mode,
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("name", in.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("name", snippet.Name),
		slog.String("userID", userID),
	)

	return snippet, nil
}

func (s *SnippetService) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}

	return s.repo.GetByID(ctx, id)
}

// List pages through snippets newest first. A non-empty userID restricts the
// listing to that owner.
func (s *SnippetService) List(ctx context.Context, userID string, limit, offset int) ([]model.Snippet, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset = max(offset, 0)

	snippets, err := s.repo.List(ctx, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
		UserID: userID,
	})
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing snippets: %w", err)
	}

	return snippets, nil
}

// Update replaces the editable fields of snippet id. Only the owner may edit
// an owned snippet.
func (s *SnippetService) Update(ctx context.Context, userID, id string, in SnippetInput) (*model.Snippet, error) {
	snippet, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	snippet.Name = in.Name
	snippet.Description = in.Description
	snippet.Code = in.Code
	snippet.Mode = in.Mode

	if err := s.repo.Update(ctx, snippet); err != nil {
		s.logger.Error("failed to update snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.logger.Info("snippet updated", slog.String("id", snippet.ID))
	return snippet, nil
}

func (s *SnippetService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("snippet deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}

// owned loads snippet id and checks userID may modify it.
func (s *SnippetService) owned(ctx context.Context, userID, id string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}

	snippet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !snippet.OwnedBy(userID) {
		s.logger.Warn("snippet ownership check failed",
			slog.String("id", id),
			slog.String("userID", userID),
		)
		return nil, apperror.Forbidden("you do not own this snippet")
	}

	return snippet, nil
}
