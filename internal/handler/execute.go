package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/js-playground/internal/apperror"
	"github.com/sakif/js-playground/internal/executor"
)

// Runner is what the execution endpoints need from service.RunService.
type Runner interface {
	Execute(ctx context.Context, code, mode string) (*executor.ExecutionResult, error)
	RunSnippet(ctx context.Context, id, mode string) (*executor.ExecutionResult, error)
	Upload(filename string, data []byte) (string, error)
	MaxUploadBytes() int64
}

type ExecuteHandler struct {
	runner    Runner
	validator *Validator
	logger    *slog.Logger
}

func NewExecuteHandler(runner Runner, validator *Validator, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		runner:    runner,
		validator: validator,
		logger:    logger,
	}
}

// HandleExecute runs POST /api/execute {code, mode}.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := h.validator.decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid execution request", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	result, err := h.runner.Execute(r.Context(), req.Code, req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleRunSnippet runs POST /api/snippets/{id}/run?mode=units|script.
func (h *ExecuteHandler) HandleRunSnippet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.runner.RunSnippet(r.Context(), id, r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// UploadResponse is returned by POST /api/upload. Result is set when the
// form asked for the file to be run.
type UploadResponse struct {
	Filename string                    `json:"filename"`
	Code     string                    `json:"code"`
	Result   *executor.ExecutionResult `json:"result,omitempty"`
}

// HandleUpload accepts a multipart form with a "file" part holding a .js
// source. An optional "mode" field runs it straight away.
func (h *ExecuteHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	limit := h.runner.MaxUploadBytes()
	// Room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, limit+64*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, apperror.ValidationFailed("file", "uploaded file is too large"))
			return
		}
		writeError(w, apperror.ValidationFailed("file", "a .js file is required in the \"file\" field"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		h.logger.Error("failed to read upload", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	code, err := h.runner.Upload(header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := UploadResponse{Filename: header.Filename, Code: code}

	if mode := strings.TrimSpace(r.FormValue("mode")); mode != "" {
		resp.Result, err = h.runner.Execute(r.Context(), code, mode)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
