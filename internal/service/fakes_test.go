package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/sakif/js-playground/internal/apperror"
	"github.com/sakif/js-playground/internal/assist"
	"github.com/sakif/js-playground/internal/executor"
	"github.com/sakif/js-playground/internal/model"
	"github.com/sakif/js-playground/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSnippetRepo is an in-memory repository.SnippetRepository.
type fakeSnippetRepo struct {
	snippets map[string]*model.Snippet
	nextID   int
	lastList repository.ListOptions
	failWith error
}

func newFakeSnippetRepo() *fakeSnippetRepo {
	return &fakeSnippetRepo{snippets: make(map[string]*model.Snippet)}
}

func (f *fakeSnippetRepo) Create(_ context.Context, s *model.Snippet) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.nextID++
	s.ID = fmt.Sprintf("snip-%d", f.nextID)
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	stored := *s
	f.snippets[s.ID] = &stored
	return nil
}

func (f *fakeSnippetRepo) GetByID(_ context.Context, id string) (*model.Snippet, error) {
	s, ok := f.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	out := *s
	return &out, nil
}

func (f *fakeSnippetRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	f.lastList = opts
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []model.Snippet{}
	for _, s := range f.snippets {
		if opts.UserID == "" || s.UserID == opts.UserID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSnippetRepo) Update(_ context.Context, s *model.Snippet) error {
	if _, ok := f.snippets[s.ID]; !ok {
		return apperror.NotFound("snippet", s.ID)
	}
	stored := *s
	f.snippets[s.ID] = &stored
	return nil
}

func (f *fakeSnippetRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.snippets[id]; !ok {
		return apperror.NotFound("snippet", id)
	}
	delete(f.snippets, id)
	return nil
}

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	byID      map[string]*model.User
	byGitHub  map[int64]string
	upsertErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]*model.User{}, byGitHub: map[int64]string{}}
}

func (f *fakeUserRepo) Upsert(_ context.Context, u *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if id, ok := f.byGitHub[u.GitHubID]; ok {
		u.ID = id
		u.CreatedAt = f.byID[id].CreatedAt
	} else {
		u.ID = fmt.Sprintf("user-%d", len(f.byID)+1)
		u.CreatedAt = time.Now()
		f.byGitHub[u.GitHubID] = u.ID
	}
	u.UpdatedAt = time.Now()
	stored := *u
	f.byID[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

// fakeExecutor records requests and returns a canned result.
type fakeExecutor struct {
	requests []executor.ExecutionRequest
	result   *executor.ExecutionResult
	err      error
}

func (f *fakeExecutor) Execute(_ context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &executor.ExecutionResult{Mode: req.Mode, Units: []string{}, Results: []executor.UnitResult{}}, nil
}

// fakeProvider replies with a fixed content string.
type fakeProvider struct {
	content  string
	err      error
	requests []assist.ChatRequest
}

func (f *fakeProvider) ChatCompletion(_ context.Context, req assist.ChatRequest) (*assist.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &assist.ChatResponse{Content: f.content, StopReason: "stop"}, nil
}

func (f *fakeProvider) HealthCheck(context.Context) error { return nil }

var errBoom = errors.New("boom")
