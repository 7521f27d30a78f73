// Command server runs the JavaScript playground web application.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/js-playground/internal/assist"
	"github.com/sakif/js-playground/internal/config"
	"github.com/sakif/js-playground/internal/executor/docker"
	"github.com/sakif/js-playground/internal/executor/jsengine"
	"github.com/sakif/js-playground/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	cfg.TemplateDir, _ = filepath.Abs(cfg.TemplateDir)
	cfg.StaticDir, _ = filepath.Abs(cfg.StaticDir)

	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	engine := jsengine.New(jsengine.Config{
		Timeout:          cfg.RunTimeout,
		MaxCallStackSize: cfg.MaxCallStack,
	}, logger)

	deps := server.Deps{Units: engine, Scripts: engine}

	if cfg.ScriptBackend == config.BackendDocker {
		if scripts, err := newDockerExecutor(cfg, logger); err != nil {
			logger.Warn("docker backend unavailable, running scripts in-process",
				slog.String("error", err.Error()),
			)
			cfg.ScriptBackend = config.BackendEmbedded
		} else {
			defer scripts.Close()
			deps.Scripts = scripts
		}
	}

	if cfg.AssistEnabled {
		deps.Assistant = assist.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaChatModel)
		logger.Info("code assistant enabled",
			slog.String("baseURL", cfg.OllamaBaseURL),
			slog.String("model", cfg.OllamaChatModel),
		)
	}

	if !cfg.AuthEnabled() {
		logger.Warn("JWT_SECRET not set, authentication is disabled")
	}

	srv, err := server.New(cfg, deps, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newDockerExecutor starts the container pool for script mode.
func newDockerExecutor(cfg config.Config, logger *slog.Logger) (*docker.Executor, error) {
	dc := docker.DefaultConfig()
	dc.Image = cfg.DockerImage
	dc.PoolSize = cfg.DockerPoolSize
	if cfg.RunTimeout > 0 {
		dc.Timeout = cfg.RunTimeout
	}
	return docker.New(dc, logger)
}
