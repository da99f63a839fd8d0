package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Laeyoung/kanobot/internal/bus"
	"github.com/Laeyoung/kanobot/internal/cache"
	"github.com/Laeyoung/kanobot/internal/channels"
	"github.com/Laeyoung/kanobot/internal/config"
	"github.com/Laeyoung/kanobot/internal/cron"
	"github.com/Laeyoung/kanobot/internal/tools"
	"github.com/Laeyoung/kanobot/internal/utils"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the kanobot gateway (channels + agent)",
	RunE:  runGateway,
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("🐈 Starting kanobot gateway...")

	msgBus := bus.NewMessageBus()
	loop := makeAgentLoop(msgBus, cfg)
	workspace := utils.GetWorkspacePath(cfg.Agent.Workspace)

	// Optional Redis session mirror; nil store means plain disk persistence.
	if store := cache.New(cache.Config{
		URL:      cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}); store != nil {
		loop.Sessions.WithMirror(store)
		defer store.Close()
		log.Info("redis session mirror enabled")
	}

	var cronSvc *cron.Service
	if cfg.CronEnabled() {
		cronSvc = cron.NewService(msgBus, workspace)
		loop.Tools.Register(&tools.CronTool{Cron: cronSvc})
	}

	chMgr := channels.NewManager(msgBus)
	if tg := cfg.Channel.Telegram; tg != nil && tg.Token != "" {
		chMgr.Register(channels.NewTelegramChannel(tg.Token, tg.AllowFrom, msgBus))
	}
	if dc := cfg.Channel.Discord; dc != nil && dc.Token != "" {
		chMgr.Register(channels.NewDiscordChannel(dc.Token, dc.AllowFrom, msgBus))
	}
	if sl := cfg.Channel.Slack; sl != nil && sl.BotToken != "" && sl.AppToken != "" {
		chMgr.Register(channels.NewSlackChannel(sl.BotToken, sl.AppToken, sl.AllowFrom, msgBus))
	}

	if enabled := chMgr.EnabledChannels(); len(enabled) > 0 {
		fmt.Printf("✓ Channels enabled: %v\n", enabled)
	} else {
		fmt.Println("⚠ No channels enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		chMgr.StopAll()
		loop.Stop()
		cancel()
	}()

	go loop.Run(ctx)
	if cronSvc != nil {
		go cronSvc.Run(ctx)
	}
	if err := chMgr.StartAll(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}
