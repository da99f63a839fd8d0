// Package config handles configuration loading, saving, and schema definition.
package config

// Config is the top-level kanobot configuration.
// Uses json tags in camelCase to match the JSON config file format.
type Config struct {
	Channel   ChannelConfig   `json:"channel"`
	Agent     AgentConfig     `json:"agent"`
	Provider  ProviderConfig  `json:"provider"`
	WebSearch WebSearchConfig `json:"webSearch"`
	Redis     RedisConfig     `json:"redis"`
	Cron      CronConfig      `json:"cron"`
}

// ChannelConfig holds per-channel settings.
type ChannelConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Discord  *DiscordConfig  `json:"discord,omitempty"`
	Slack    *SlackConfig    `json:"slack,omitempty"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom,omitempty"`
}

// DiscordConfig holds Discord bot settings.
type DiscordConfig struct {
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom,omitempty"`
}

// SlackConfig holds Slack bot settings.
type SlackConfig struct {
	BotToken  string   `json:"botToken"`
	AppToken  string   `json:"appToken"`
	AllowFrom []string `json:"allowFrom,omitempty"`
}

// AgentConfig holds agent behavior settings.
type AgentConfig struct {
	Model         string  `json:"model,omitempty"`
	MaxTokens     int     `json:"maxTokens,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"`
	MaxIterations int     `json:"maxIterations,omitempty"`
	MemoryWindow  int     `json:"memoryWindow,omitempty"`
	Workspace     string  `json:"workspace,omitempty"`
}

// ProviderConfig holds LLM provider credentials and endpoint overrides.
type ProviderConfig struct {
	Name    string `json:"name,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
	APIBase string `json:"apiBase,omitempty"`
}

// WebSearchConfig holds web search credentials.
type WebSearchConfig struct {
	BraveAPIKey       string `json:"braveApiKey,omitempty"`
	NaverClientID     string `json:"naverClientId,omitempty"`
	NaverClientSecret string `json:"naverClientSecret,omitempty"`
}

// RedisConfig holds the optional session mirror settings.
type RedisConfig struct {
	URL      string `json:"url,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// CronConfig holds scheduler settings.
type CronConfig struct {
	Enabled *bool `json:"enabled,omitempty"`
}

// CronEnabled returns whether the scheduler runs (default true).
func (c Config) CronEnabled() bool {
	if c.Cron.Enabled == nil {
		return true
	}
	return *c.Cron.Enabled
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Agent: AgentConfig{
			Model:         "anthropic/claude-sonnet-4-5",
			MaxTokens:     4096,
			Temperature:   0.7,
			MaxIterations: 20,
			MemoryWindow:  50,
		},
	}
}
