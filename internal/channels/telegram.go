package channels

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/Laeyoung/kanobot/internal/bus"
)

const telegramMaxLength = 4096

// TelegramChannel is a Telegram bot channel using long polling.
type TelegramChannel struct {
	BaseChannel
	Token string

	bot      *telego.Bot
	cancelFn context.CancelFunc
	logger   *log.Logger
}

// NewTelegramChannel creates a TelegramChannel.
func NewTelegramChannel(token string, allowFrom []string, msgBus *bus.MessageBus) *TelegramChannel {
	return &TelegramChannel{
		BaseChannel: BaseChannel{
			ChannelName: "telegram",
			Bus:         msgBus,
			AllowFrom:   allowFrom,
		},
		Token:  token,
		logger: log.WithPrefix("telegram"),
	}
}

func (t *TelegramChannel) Name() string    { return "telegram" }
func (t *TelegramChannel) IsRunning() bool { return t.Running }

// Start begins long polling for Telegram updates. Blocks until ctx is
// cancelled or the connection fails.
func (t *TelegramChannel) Start(ctx context.Context) error {
	if t.Token == "" {
		return fmt.Errorf("telegram bot token not configured")
	}

	bot, err := telego.NewBot(strings.TrimSpace(t.Token))
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot

	ctx, t.cancelFn = context.WithCancel(ctx)
	defer t.cancelFn()

	me, err := bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	t.logger.Info("connected", "bot", "@"+me.Username)

	updates, err := bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("telegram long polling: %w", err)
	}
	t.Running = true

	for {
		select {
		case <-ctx.Done():
			t.Running = false
			return nil
		case update, ok := <-updates:
			if !ok {
				t.Running = false
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("telegram updates channel closed")
			}
			t.processUpdate(update)
		}
	}
}

// Stop stops the Telegram bot.
func (t *TelegramChannel) Stop() error {
	t.Running = false
	if t.cancelFn != nil {
		t.cancelFn()
	}
	return nil
}

// Send delivers a message via Telegram, chunked to the platform limit.
func (t *TelegramChannel) Send(msg bus.OutboundMessage) error {
	if t.bot == nil {
		return fmt.Errorf("telegram bot not running")
	}
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat_id %q: %w", msg.ChatID, err)
	}
	for _, chunk := range SplitMessage(msg.Content, telegramMaxLength) {
		if _, err := t.bot.SendMessage(context.Background(), tu.Message(tu.ID(chatID), chunk)); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}
	return nil
}

func (t *TelegramChannel) processUpdate(update telego.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	senderID := strconv.FormatInt(msg.From.ID, 10)
	if msg.From.Username != "" {
		senderID = senderID + "|" + msg.From.Username
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	text := msg.Text
	if text == "" && msg.Caption != "" {
		text = msg.Caption
	}
	if text == "" {
		text = "[empty message]"
	}

	var media []string
	for _, photo := range msg.Photo {
		media = append(media, photo.FileID)
	}

	t.HandleMessage(senderID, chatID, text, media, map[string]any{
		"message_id": msg.MessageID,
		"user_id":    msg.From.ID,
		"username":   msg.From.Username,
	})
}
