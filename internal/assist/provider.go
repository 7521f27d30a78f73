// Package assist talks to the chat model behind the playground's
// "generate code" and "suggest improvements" features.
package assist

import "context"

// Message is one turn of a chat conversation.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatRequest is the input for a non-streaming chat completion.
type ChatRequest struct {
	// Model overrides the provider default when non-empty.
	Model       string
	Messages    []Message
	Temperature float32
	// JSON asks the model to answer with a single JSON object.
	JSON bool
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Content    string
	StopReason string
}

// Provider is implemented by chat backends. OllamaProvider is the only one.
type Provider interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	HealthCheck(ctx context.Context) error
}
