package llm

import (
	"context"
	"encoding/json"
)

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	// SupportsSchema reports whether the provider enforces a response
	// schema server-side. Callers embed the schema in the prompt when
	// it returns false.
	SupportsSchema() bool
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds the request parameters
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
	// Schema, when set, requests structured output constrained to it.
	// Providers without schema support fall back to JSONMode.
	Schema *ResponseSchema
}

// ResponseSchema names a JSON schema for structured output.
type ResponseSchema struct {
	Name   string
	Schema json.RawMessage
	Strict bool
}

// Message represents a chat message
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}
