package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Laeyoung/kanobot/internal/config"
	"github.com/Laeyoung/kanobot/internal/providers"
	"github.com/Laeyoung/kanobot/internal/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show kanobot status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	configPath := config.GetConfigPath()
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("🐈 kanobot Status")
	fmt.Println()
	fmt.Printf("Config: %s\n", configPath)
	fmt.Printf("Workspace: %s\n", utils.GetWorkspacePath(cfg.Agent.Workspace))
	fmt.Printf("Model: %s\n", cfg.Agent.Model)

	if spec := providers.FindByModel(cfg.Agent.Model); spec != nil {
		fmt.Printf("Provider: %s\n", spec.Label())
	}

	fmt.Println("\nChannels:")
	if tg := cfg.Channel.Telegram; tg != nil && tg.Token != "" {
		fmt.Println("  Telegram: ✓")
	}
	if dc := cfg.Channel.Discord; dc != nil && dc.Token != "" {
		fmt.Println("  Discord: ✓")
	}
	if sl := cfg.Channel.Slack; sl != nil && sl.BotToken != "" {
		fmt.Println("  Slack: ✓")
	}

	fmt.Println("\nExtras:")
	if cfg.Redis.URL != "" {
		fmt.Println("  Redis session mirror: ✓")
	}
	if cfg.CronEnabled() {
		fmt.Println("  Cron scheduler: ✓")
	}
	if cfg.WebSearch.NaverClientID != "" {
		fmt.Println("  Naver search: ✓")
	}
	if cfg.WebSearch.BraveAPIKey != "" {
		fmt.Println("  Brave search: ✓")
	}

	return nil
}
