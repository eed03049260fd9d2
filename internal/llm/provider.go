package llm

import (
	"context"
	"encoding/json"
)

// Provider is a structured-output LLM backend.
type Provider interface {
	// Generate sends req and returns the model output. When req.Schema is
	// set the content has already been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the model the provider sends requests to.
	ModelID() string
}

// Request is one single- or multi-turn prompt.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, asks for JSON through the provider's native
	// structured output mode. Without it Content is the raw text.
	Schema *Schema

	MaxTokens   int
	Temperature float64 // 0 means the provider default
}

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema.
type Schema struct {
	// Name is a kebab-case identifier such as "mcq-question". It doubles as
	// the compiled schema cache key.
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the model output with accounting.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage is the token count of one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// resolveModel maps a friendly name through models. Unknown names are used
// as literal model ids.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}

// checkContent validates content against the request schema, if any.
func checkContent(req Request, content json.RawMessage) error {
	if req.Schema == nil {
		return nil
	}
	return validateResponse(req.Schema, content)
}
