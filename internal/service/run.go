package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sakif/js-playground/internal/apperror"
	"github.com/sakif/js-playground/internal/executor"
	"github.com/sakif/js-playground/internal/repository"
)

// DefaultMaxUploadBytes caps uploaded .js files when no limit is configured.
const DefaultMaxUploadBytes = 1 << 20

// RunService runs code through the configured backends.
//
// units always goes to the in-process engine (it is the only backend that can
// discover and call individual functions). scripts may be the same engine or
// the docker runner; nil disables script mode.
type RunService struct {
	units          executor.Executor
	scripts        executor.Executor
	snippets       repository.SnippetRepository
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewRunService(
	units, scripts executor.Executor,
	snippets repository.SnippetRepository,
	maxUploadBytes int64,
	logger *slog.Logger,
) *RunService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &RunService{
		units:          units,
		scripts:        scripts,
		snippets:       snippets,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// MaxUploadBytes is the largest upload Upload accepts.
func (s *RunService) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Execute runs code in the requested mode ("" means units). Failures inside
// the user's code are part of the result, not an error.
func (s *RunService) Execute(ctx context.Context, code, mode string) (*executor.ExecutionResult, error) {
	m, err := parseMode(mode)
	if err != nil {
		return nil, err
	}
	if len(code) > MaxCodeLength {
		return nil, apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}

	backend := s.units
	if m == executor.ModeScript {
		backend = s.scripts
	}
	if backend == nil {
		return nil, apperror.Unavailable(fmt.Sprintf("%s execution", m))
	}

	result, err := backend.Execute(ctx, executor.ExecutionRequest{Code: code, Mode: m})
	if err != nil {
		s.logger.Error("code execution failed",
			slog.String("mode", string(m)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("executing %s: %w", m, err)
	}

	failed := 0
	for _, r := range result.Results {
		if r.Failed() {
			failed++
		}
	}
	s.logger.Info("code executed",
		slog.String("mode", string(m)),
		slog.Int("units", len(result.Units)),
		slog.Int("failed", failed),
		slog.Int("reports", len(result.Reports)),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

// RunSnippet runs a saved snippet. An empty mode uses the snippet's own.
func (s *RunService) RunSnippet(ctx context.Context, id, mode string) (*executor.ExecutionResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}

	snippet, err := s.snippets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if mode == "" {
		mode = snippet.Mode
	}
	return s.Execute(ctx, snippet.Code, mode)
}

// Upload validates an uploaded source file and returns its text.
func (s *RunService) Upload(filename string, data []byte) (string, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".js") {
		return "", apperror.ValidationFailed("file", "only .js files are accepted")
	}
	if int64(len(data)) > s.maxUploadBytes {
		return "", apperror.ValidationFailed("file",
			fmt.Sprintf("file must be %d bytes or less", s.maxUploadBytes))
	}
	if !utf8.Valid(data) {
		return "", apperror.ValidationFailed("file", "file is not valid UTF-8 text")
	}

	code := strings.TrimPrefix(string(data), "\ufeff")

	s.logger.Info("source file uploaded",
		slog.String("filename", filepath.Base(filename)),
		slog.Int("bytes", len(data)),
	)
	return code, nil
}
