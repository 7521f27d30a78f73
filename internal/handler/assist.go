package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/js-playground/internal/service"
)

// CodeAssistant is the part of service.AssistService the handler uses.
type CodeAssistant interface {
	Generate(ctx context.Context, description string) (string, error)
	Improve(ctx context.Context, code string) (*service.Improvement, error)
}

type AssistHandler struct {
	assistant CodeAssistant
	validator *Validator
	logger    *slog.Logger
}

func NewAssistHandler(assistant CodeAssistant, validator *Validator, logger *slog.Logger) *AssistHandler {
	return &AssistHandler{assistant: assistant, validator: validator, logger: logger}
}

// HandleGenerate serves POST /api/assist/generate {description} -> {code}.
func (h *AssistHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := h.validator.decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	code, err := h.assistant.Generate(r.Context(), req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

// HandleImprove serves POST /api/assist/improve {code} -> {improvedCode, suggestions}.
func (h *AssistHandler) HandleImprove(w http.ResponseWriter, r *http.Request) {
	var req ImproveRequest
	if err := h.validator.decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	out, err := h.assistant.Improve(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}
