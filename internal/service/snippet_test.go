package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/js-playground/internal/apperror"
)

func newTestSnippetService() (*SnippetService, *fakeSnippetRepo) {
	repo := newFakeSnippetRepo()
	return NewSnippetService(repo, discardLogger()), repo
}

func TestSnippetCreate(t *testing.T) {
	svc, repo := newTestSnippetService()

	snippet, err := svc.Create(context.Background(), "user-1", SnippetInput{
		Name:        "  adder  ",
		Description: "  sums two numbers ",
		Code:        "function add(a, b) { return a + b; }",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, snippet.ID)
	assert.Equal(t, "adder", snippet.Name)
	assert.Equal(t, "sums two numbers", snippet.Description)
	assert.Equal(t, "units", snippet.Mode, "empty mode defaults to units")
	assert.Equal(t, "user-1", snippet.UserID)
	assert.Len(t, repo.snippets, 1)
}

func TestSnippetCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    SnippetInput
		field string
	}{
		{"empty name", SnippetInput{Name: ""}, "name"},
		{"whitespace name", SnippetInput{Name: "   "}, "name"},
		{"long name", SnippetInput{Name: strings.Repeat("n", MaxSnippetNameLength+1)}, "name"},
		{"long description", SnippetInput{Name: "x", Description: strings.Repeat("d", MaxDescriptionLength+1)}, "description"},
		{"long code", SnippetInput{Name: "x", Code: strings.Repeat("c", MaxCodeLength+1)}, "code"},
		{"bad mode", SnippetInput{Name: "x", Mode: "turbo"}, "mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestSnippetService()

			_, err := svc.Create(context.Background(), "", tt.in)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr), "got %v", err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))
			assert.Equal(t, tt.field, appErr.Field)
			assert.Empty(t, repo.snippets)
		})
	}
}

func TestSnippetCreate_ModeIsNormalized(t *testing.T) {
	svc, _ := newTestSnippetService()

	snippet, err := svc.Create(context.Background(), "", SnippetInput{Name: "s", Mode: " Script "})
	require.NoError(t, err)
	assert.Equal(t, "script", snippet.Mode)
}

func TestSnippetCreate_RepositoryError(t *testing.T) {
	svc, repo := newTestSnippetService()
	repo.failWith = errBoom

	_, err := svc.Create(context.Background(), "", SnippetInput{Name: "s"})
	assert.True(t, errors.Is(err, errBoom))
}

func TestSnippetGetByID(t *testing.T) {
	svc, _ := newTestSnippetService()
	created, err := svc.Create(context.Background(), "", SnippetInput{Name: "s", Code: "x"})
	require.NoError(t, err)

	found, err := svc.GetByID(context.Background(), " "+created.ID+" ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.GetByID(context.Background(), "nope")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, err = svc.GetByID(context.Background(), "  ")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestSnippetList_ClampsPaging(t *testing.T) {
	svc, repo := newTestSnippetService()

	_, err := svc.List(context.Background(), "", -1, -5)
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, repo.lastList.Limit)
	assert.Equal(t, 0, repo.lastList.Offset)

	_, err = svc.List(context.Background(), "user-9", 5000, 3)
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, repo.lastList.Limit)
	assert.Equal(t, 3, repo.lastList.Offset)
	assert.Equal(t, "user-9", repo.lastList.UserID)
}

func TestSnippetUpdate(t *testing.T) {
	svc, _ := newTestSnippetService()
	ctx := context.Background()
	created, err := svc.Create(ctx, "owner", SnippetInput{Name: "old", Code: "old"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "owner", created.ID, SnippetInput{Name: "new", Code: "report(1)", Mode: "script"})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Name)
	assert.Equal(t, "report(1)", updated.Code)
	assert.Equal(t, "script", updated.Mode)
	assert.Equal(t, "owner", updated.UserID)
}

func TestSnippetUpdate_Ownership(t *testing.T) {
	svc, _ := newTestSnippetService()
	ctx := context.Background()

	owned, err := svc.Create(ctx, "owner", SnippetInput{Name: "mine"})
	require.NoError(t, err)
	anon, err := svc.Create(ctx, "", SnippetInput{Name: "shared"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "intruder", owned.ID, SnippetInput{Name: "stolen"})
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	_, err = svc.Update(ctx, "", owned.ID, SnippetInput{Name: "stolen"})
	assert.True(t, errors.Is(err, apperror.ErrForbidden), "anonymous callers cannot edit owned snippets")

	_, err = svc.Update(ctx, "anyone", anon.ID, SnippetInput{Name: "edited"})
	assert.NoError(t, err, "anonymous snippets are editable by anyone")
}

func TestSnippetUpdate_NotFound(t *testing.T) {
	svc, _ := newTestSnippetService()

	_, err := svc.Update(context.Background(), "", "ghost", SnippetInput{Name: "x"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestSnippetDelete(t *testing.T) {
	svc, repo := newTestSnippetService()
	ctx := context.Background()
	created, err := svc.Create(ctx, "owner", SnippetInput{Name: "doomed"})
	require.NoError(t, err)

	err = svc.Delete(ctx, "intruder", created.ID)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
	assert.Len(t, repo.snippets, 1)

	require.NoError(t, svc.Delete(ctx, "owner", created.ID))
	assert.Empty(t, repo.snippets)

	err = svc.Delete(ctx, "owner", created.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
