package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sakif/js-playground/internal/apperror"
	"github.com/sakif/js-playground/internal/assist"
)

const MaxDescriptionPromptLength = 2000

const generateSystemPrompt = `You are an AI code assistant that generates JavaScript code based on a description.
The code should be wrapped in a function.
Answer with a JSON object of the form {"code": "<the JavaScript code>"} and nothing else.`

const improveSystemPrompt = `You are an AI code assistant that helps improve JavaScript code.
You will receive JavaScript code and you will provide an improved version of the code, as well as a list of suggestions for the code.
Answer with a JSON object of the form {"improvedCode": "<code>", "suggestions": ["<suggestion>", ...]} and nothing else.`

// Improvement is the assistant's answer to an improve request.
type Improvement struct {
	ImprovedCode string   `json:"improvedCode"`
	Suggestions  []string `json:"suggestions"`
}

// AssistService generates and improves JavaScript through a chat model.
// A nil provider means the feature is switched off.
type AssistService struct {
	provider assist.Provider
	logger   *slog.Logger
}

func NewAssistService(provider assist.Provider, logger *slog.Logger) *AssistService {
	return &AssistService{provider: provider, logger: logger}
}

// Generate returns JavaScript written from a natural-language description.
func (s *AssistService) Generate(ctx context.Context, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", apperror.ValidationFailed("description", "description is required")
	}
	if len(description) > MaxDescriptionPromptLength {
		return "", apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionPromptLength))
	}

	var out struct {
		Code string `json:"code"`
	}
	if err := s.ask(ctx, generateSystemPrompt, description, &out); err != nil {
		return "", err
	}

	code := stripCodeFence(out.Code)
	if code == "" {
		return "", fmt.Errorf("assist: model returned no code")
	}
	return code, nil
}

// Improve returns a rewritten version of code plus review suggestions.
func (s *AssistService) Improve(ctx context.Context, code string) (*Improvement, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("code", "code is required")
	}
	if len(code) > MaxCodeLength {
		return nil, apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}

	var out Improvement
	if err := s.ask(ctx, improveSystemPrompt, "Code:\n"+code, &out); err != nil {
		return nil, err
	}

	out.ImprovedCode = stripCodeFence(out.ImprovedCode)
	if out.ImprovedCode == "" {
		out.ImprovedCode = code
	}
	if out.Suggestions == nil {
		out.Suggestions = []string{}
	}
	return &out, nil
}

// ask sends one system+user exchange and decodes the JSON reply into out.
func (s *AssistService) ask(ctx context.Context, system, user string, out any) error {
	if s.provider == nil {
		return apperror.Unavailable("code assistant")
	}

	resp, err := s.provider.ChatCompletion(ctx, assist.ChatRequest{
		Messages: []assist.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
		JSON:        true,
	})
	if err != nil {
		s.logger.Error("assistant request failed", slog.String("error", err.Error()))
		return fmt.Errorf("assist: %w", err)
	}

	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), out); err != nil {
		s.logger.Warn("assistant returned malformed JSON",
			slog.String("error", err.Error()),
			slog.Int("length", len(resp.Content)),
		)
		return fmt.Errorf("assist: decoding model reply: %w", err)
	}
	return nil
}

var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```\\s*$")

// stripCodeFence removes a surrounding ```lang ... ``` block if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}
