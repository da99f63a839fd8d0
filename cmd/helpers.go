package cmd

import (
	"os"

	"github.com/Laeyoung/kanobot/internal/agent"
	"github.com/Laeyoung/kanobot/internal/bus"
	"github.com/Laeyoung/kanobot/internal/config"
	"github.com/Laeyoung/kanobot/internal/providers"
	"github.com/Laeyoung/kanobot/internal/tools"
	"github.com/Laeyoung/kanobot/internal/utils"
)

// makeProvider creates a Provider from the loaded config, falling back to
// environment variables for the API key.
func makeProvider(cfg config.Config) *providers.Provider {
	model := cfg.Agent.Model
	if model == "" {
		model = "anthropic/claude-sonnet-4-5"
	}

	apiKey := cfg.Provider.APIKey
	apiBase := cfg.Provider.APIBase
	providerName := cfg.Provider.Name

	if apiKey == "" {
		if spec := providers.FindByModel(model); spec != nil {
			apiKey = os.Getenv(spec.EnvKey)
		}
	}
	if apiKey == "" {
		for _, envKey := range []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"} {
			if v := os.Getenv(envKey); v != "" {
				apiKey = v
				break
			}
		}
	}

	return providers.NewProvider(apiKey, apiBase, model, providerName)
}

// makeAgentLoop builds the agent loop with the standard tool set registered.
func makeAgentLoop(msgBus *bus.MessageBus, cfg config.Config) *agent.AgentLoop {
	loop := agent.NewAgentLoop(msgBus, makeProvider(cfg), agent.Config{
		Workspace:     utils.GetWorkspacePath(cfg.Agent.Workspace),
		Model:         cfg.Agent.Model,
		Temperature:   cfg.Agent.Temperature,
		MaxTokens:     cfg.Agent.MaxTokens,
		MaxIterations: cfg.Agent.MaxIterations,
		MemoryWindow:  cfg.Agent.MemoryWindow,
	})

	loop.Tools.Register(&tools.WebSearchTool{APIKey: cfg.WebSearch.BraveAPIKey})
	loop.Tools.Register(&tools.NaverSearchTool{
		ClientID:     cfg.WebSearch.NaverClientID,
		ClientSecret: cfg.WebSearch.NaverClientSecret,
	})
	loop.Tools.Register(&tools.WebFetchTool{})
	loop.Tools.Register(&tools.MessageTool{
		SendCallback: func(msg bus.OutboundMessage) error {
			msgBus.PublishOutbound(msg)
			return nil
		},
	})

	return loop
}
