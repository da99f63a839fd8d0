// Package providers defines the LLM provider interface and response types.
package providers

import "context"

// ToolCallRequest represents a tool call requested by the LLM.
type ToolCallRequest struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// LLMResponse is the standardized response from any LLM provider. Content is
// a pointer: providers may return no content at all, which callers must treat
// as distinct from an empty string until they decide otherwise.
type LLMResponse struct {
	Content      *string           `json:"content"`
	ToolCalls    []ToolCallRequest `json:"tool_calls,omitempty"`
	FinishReason string            `json:"finish_reason"`
	Usage        map[string]int    `json:"usage,omitempty"`
}

// HasToolCalls returns true if the response contains tool calls.
func (r *LLMResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// ContentOrEmpty returns the content, mapping absent to "".
func (r *LLMResponse) ContentOrEmpty() string {
	if r.Content == nil {
		return ""
	}
	return *r.Content
}

// ChatRequest holds all parameters for a chat completion call. A nil Tools
// slice means the request is sent without any tools key at all; callers that
// must guarantee a tool-free call (JAM mode) rely on this.
type ChatRequest struct {
	Messages    []map[string]any `json:"messages"`
	Tools       []map[string]any `json:"tools,omitempty"`
	Model       string           `json:"model,omitempty"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
}

// LLMProvider is the interface for all LLM backends.
type LLMProvider interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req ChatRequest) (*LLMResponse, error)

	// DefaultModel returns the default model identifier.
	DefaultModel() string
}
