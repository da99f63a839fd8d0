package providers

import "strings"

// ProviderSpec describes a known LLM provider or gateway: how to recognize
// its models, where its API lives, and which env var carries its key.
type ProviderSpec struct {
	Name           string
	DisplayName    string
	EnvKey         string
	DefaultAPIBase string
	KeyPrefix      string   // API keys with this prefix imply this gateway
	ModelPrefixes  []string // "provider/" prefixes this spec claims
}

// Label returns the human-readable provider name.
func (s *ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

var specs = []ProviderSpec{
	{
		Name:           "openrouter",
		DisplayName:    "OpenRouter",
		EnvKey:         "OPENROUTER_API_KEY",
		KeyPrefix:      "sk-or-",
		DefaultAPIBase: "https://openrouter.ai/api/v1",
	},
	{
		Name:           "openai",
		DisplayName:    "OpenAI",
		EnvKey:         "OPENAI_API_KEY",
		DefaultAPIBase: "https://api.openai.com/v1",
		ModelPrefixes:  []string{"openai/", "gpt-", "o1", "o3"},
	},
	{
		Name:           "anthropic",
		DisplayName:    "Anthropic",
		EnvKey:         "ANTHROPIC_API_KEY",
		DefaultAPIBase: "https://api.anthropic.com/v1",
		ModelPrefixes:  []string{"anthropic/", "claude-"},
	},
	{
		Name:           "deepseek",
		DisplayName:    "DeepSeek",
		EnvKey:         "DEEPSEEK_API_KEY",
		DefaultAPIBase: "https://api.deepseek.com/v1",
		ModelPrefixes:  []string{"deepseek/", "deepseek-"},
	},
	{
		Name:           "zhipu",
		DisplayName:    "Zhipu AI",
		EnvKey:         "ZAI_API_KEY",
		DefaultAPIBase: "https://open.bigmodel.cn/api/paas/v4",
		ModelPrefixes:  []string{"zhipu/", "glm-"},
	},
}

// FindByModel returns the spec claiming a model name, or nil.
func FindByModel(model string) *ProviderSpec {
	lower := strings.ToLower(model)
	for i := range specs {
		for _, prefix := range specs[i].ModelPrefixes {
			if strings.HasPrefix(lower, prefix) {
				return &specs[i]
			}
		}
	}
	return nil
}

// FindByName returns the spec with the given name, or nil.
func FindByName(name string) *ProviderSpec {
	for i := range specs {
		if specs[i].Name == name {
			return &specs[i]
		}
	}
	return nil
}

// DetectGateway inspects an explicit provider name and the API key shape to
// find a gateway spec (e.g. OpenRouter keys start with "sk-or-").
func DetectGateway(providerName, apiKey string) *ProviderSpec {
	if providerName != "" {
		if spec := FindByName(providerName); spec != nil {
			return spec
		}
	}
	for i := range specs {
		if specs[i].KeyPrefix != "" && strings.HasPrefix(apiKey, specs[i].KeyPrefix) {
			return &specs[i]
		}
	}
	return nil
}
