// OpenAI-compatible LLM provider over plain HTTP. Works against OpenRouter,
// direct OpenAI, DeepSeek, and other compatible endpoints, so the rest of the
// system only ever sees ChatRequest/LLMResponse.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultModel = "anthropic/claude-sonnet-4-5"

// Provider is an OpenAI-compatible LLM provider.
type Provider struct {
	APIKey     string
	APIBase    string
	Model      string
	HTTPClient *http.Client

	gateway *ProviderSpec
}

// NewProvider creates a Provider. providerName may name a gateway explicitly;
// otherwise the gateway is detected from the API key shape.
func NewProvider(apiKey, apiBase, model, providerName string) *Provider {
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		APIKey:     apiKey,
		APIBase:    apiBase,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
		gateway:    DetectGateway(providerName, apiKey),
	}
}

// DefaultModel satisfies the LLMProvider interface.
func (p *Provider) DefaultModel() string { return p.Model }

// Chat sends a chat completion request. Tools are included in the request
// body only when the caller supplied them; a nil Tools slice produces a body
// with no tools key. Transport and HTTP failures are returned as error-text
// responses so callers always have something to show the user.
func (p *Provider) Chat(ctx context.Context, req ChatRequest) (*LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = p.Model
	}

	maxTokens := req.MaxTokens
	if maxTokens < 1 {
		maxTokens = 4096
	}

	body := map[string]any{
		"model":       p.resolveModel(model),
		"messages":    req.Messages,
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
	}
	if len(req.Tools) > 0 {
		body["tools"] = req.Tools
		body["tool_choice"] = "auto"
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	apiBase, apiKey := p.resolveEndpoint(model)
	endpoint := strings.TrimRight(apiBase, "/") + "/chat/completions"

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return errResponse("Error calling LLM: %v", err), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errResponse("Error reading response: %v", err), nil
	}
	if resp.StatusCode != http.StatusOK {
		return errResponse("Error calling LLM (HTTP %d): %s", resp.StatusCode, string(respBody)), nil
	}

	return parseResponse(respBody)
}

// resolveEndpoint picks the API base and key: explicit config wins, then the
// gateway, then the provider spec matching the model name.
func (p *Provider) resolveEndpoint(model string) (apiBase, apiKey string) {
	apiBase = p.APIBase
	apiKey = p.APIKey

	if apiBase == "" && p.gateway != nil {
		apiBase = p.gateway.DefaultAPIBase
	}
	if apiBase == "" {
		if spec := FindByModel(model); spec != nil {
			apiBase = spec.DefaultAPIBase
			if apiKey == "" && spec.EnvKey != "" {
				apiKey = os.Getenv(spec.EnvKey)
			}
		}
	}
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	return apiBase, apiKey
}

// resolveModel strips the "provider/" prefix when calling a provider's own
// API directly; gateways receive the prefixed form untouched.
func (p *Provider) resolveModel(model string) string {
	if p.gateway != nil {
		return model
	}
	if spec := FindByModel(model); spec != nil && spec.DefaultAPIBase != "" {
		if idx := strings.Index(model, "/"); idx >= 0 {
			return model[idx+1:]
		}
	}
	return model
}

// openAIResponse mirrors the OpenAI chat completion response structure.
type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content   *string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func parseResponse(body []byte) (*LLMResponse, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return errResponse("Error parsing response: %v", err), nil
	}
	if len(resp.Choices) == 0 {
		return errResponse("Error: no choices in response"), nil
	}

	choice := resp.Choices[0]

	var toolCalls []ToolCallRequest
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		toolCalls = append(toolCalls, ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	usage := map[string]int{}
	if resp.Usage != nil {
		usage["prompt_tokens"] = resp.Usage.PromptTokens
		usage["completion_tokens"] = resp.Usage.CompletionTokens
		usage["total_tokens"] = resp.Usage.TotalTokens
	}

	finishReason := choice.FinishReason
	if finishReason == "" {
		finishReason = "stop"
	}

	return &LLMResponse{
		Content:      choice.Message.Content,
		ToolCalls:    toolCalls,
		FinishReason: finishReason,
		Usage:        usage,
	}, nil
}

func errResponse(format string, args ...any) *LLMResponse {
	s := fmt.Sprintf(format, args...)
	return &LLMResponse{Content: &s, FinishReason: "error"}
}
