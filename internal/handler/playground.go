package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
)

// PlaygroundOptions toggles parts of the page that depend on configuration.
type PlaygroundOptions struct {
	AuthEnabled   bool
	AssistEnabled bool
	ScriptBackend string
}

type PlaygroundHandler struct {
	templates *template.Template
	options   PlaygroundOptions
	logger    *slog.Logger
}

// NewPlaygroundHandler parses the templates once at start-up so a broken
// template fails the boot instead of the first request.
func NewPlaygroundHandler(templateDir string, opts PlaygroundOptions, logger *slog.Logger) (*PlaygroundHandler, error) {
	tmpl, err := template.ParseFiles(
		filepath.Join(templateDir, "base.html"),
		filepath.Join(templateDir, "playground.html"),
	)
	if err != nil {
		return nil, err
	}

	return &PlaygroundHandler{
		templates: tmpl,
		options:   opts,
		logger:    logger,
	}, nil
}

func (h *PlaygroundHandler) HandlePlayground(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title":         "JS Playground",
		"AuthEnabled":   h.options.AuthEnabled,
		"AssistEnabled": h.options.AssistEnabled,
		"ScriptBackend": h.options.ScriptBackend,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
