// Package config loads runtime settings from the environment. A .env file in
// the working directory, if present, is read first; real environment
// variables win over it. Every field has a default so the server starts with
// no setup at all.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Script backends accepted by SCRIPT_BACKEND.
const (
	BackendEmbedded = "embedded"
	BackendDocker   = "docker"
)

type Config struct {
	Port        int    // PORT
	DBPath      string // DB_PATH
	TemplateDir string // TEMPLATE_DIR
	StaticDir   string // STATIC_DIR
	LogLevel    slog.Level

	// Auth is enabled only when JWTSecret is set.
	JWTSecret          string        // JWT_SECRET
	SessionTTL         time.Duration // SESSION_TTL
	GitHubClientID     string        // GITHUB_CLIENT_ID
	GitHubClientSecret string        // GITHUB_CLIENT_SECRET
	GitHubCallbackURL  string        // GITHUB_CALLBACK_URL

	// Execution
	RunTimeout     time.Duration // RUN_TIMEOUT
	MaxCallStack   int           // MAX_CALL_STACK
	ScriptBackend  string        // SCRIPT_BACKEND: embedded | docker
	DockerImage    string        // DOCKER_IMAGE
	DockerPoolSize int           // DOCKER_POOL_SIZE
	MaxUploadBytes int64         // MAX_UPLOAD_BYTES

	// Code assistant
	AssistEnabled   bool   // ASSIST_ENABLED
	OllamaBaseURL   string // OLLAMA_BASE_URL
	OllamaChatModel string // OLLAMA_CHAT_MODEL
}

// AuthEnabled reports whether login and ownership checks are switched on.
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// Load reads .env (when present) and the environment. Malformed values are
// reported together rather than one at a time.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	p := parser{}

	cfg := Config{
		Port:        p.int("PORT", 8080),
		DBPath:      envOr("DB_PATH", "data/playground.db"),
		TemplateDir: envOr("TEMPLATE_DIR", "web/templates"),
		StaticDir:   envOr("STATIC_DIR", "web/static"),
		LogLevel:    p.level("LOG_LEVEL", slog.LevelInfo),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		SessionTTL:         p.duration("SESSION_TTL", 24*time.Hour),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),

		RunTimeout:     p.duration("RUN_TIMEOUT", 5*time.Second),
		MaxCallStack:   p.int("MAX_CALL_STACK", 10000),
		ScriptBackend:  strings.ToLower(envOr("SCRIPT_BACKEND", BackendEmbedded)),
		DockerImage:    envOr("DOCKER_IMAGE", "node:22-alpine"),
		DockerPoolSize: p.int("DOCKER_POOL_SIZE", 2),
		MaxUploadBytes: int64(p.int("MAX_UPLOAD_BYTES", 1<<20)),

		AssistEnabled:   p.bool("ASSIST_ENABLED", false),
		OllamaBaseURL:   envOr("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaChatModel: envOr("OLLAMA_CHAT_MODEL", "llama3.2:3b"),
	}
	cfg.GitHubCallbackURL = envOr("GITHUB_CALLBACK_URL",
		fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port))

	switch cfg.ScriptBackend {
	case BackendEmbedded, BackendDocker:
	default:
		p.fail("SCRIPT_BACKEND", cfg.ScriptBackend)
	}

	if len(p.errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(p.errs...))
	}
	return cfg, nil
}

// envOr returns the value of the environment variable key, or fallback if unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser collects conversion errors so Load can report all of them.
type parser struct {
	errs []error
}

func (p *parser) fail(key, value string) {
	p.errs = append(p.errs, fmt.Errorf("invalid %s value %q", key, value))
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		p.fail(key, v)
		return fallback
	}
	return n
}

func (p *parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v)
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		p.fail(key, v)
		return fallback
	}
	return d
}

func (p *parser) level(key string, fallback slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		p.fail(key, v)
		return fallback
	}
	return l
}
