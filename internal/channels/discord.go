package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/Laeyoung/kanobot/internal/bus"
)

const (
	discordMaxLength = 2000
	discordAPIBase   = "https://discord.com/api/v10"
	discordGatewayWS = "wss://gateway.discord.gg/?v=10&encoding=json"

	// Gateway intents: DIRECT_MESSAGES | MESSAGE_CONTENT.
	discordIntents = (1 << 12) | (1 << 15)
)

var discordLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// MarkdownForDiscord adapts markdown for Discord. Discord renders bold,
// italic, strikethrough and code natively; only [text](url) links need
// rewriting since plain bots cannot post them.
func MarkdownForDiscord(text string) string {
	return discordLinkRe.ReplaceAllString(text, "$1 (<$2>)")
}

// DiscordChannel is a DM-only Discord channel speaking the gateway protocol
// over WebSocket. Guild messages are ignored.
type DiscordChannel struct {
	BaseChannel
	Token string

	botUserID string
	conn      *websocket.Conn
	client    *http.Client
	cancelFn  context.CancelFunc
	mu        sync.Mutex
	logger    *log.Logger
}

// NewDiscordChannel creates a DiscordChannel.
func NewDiscordChannel(token string, allowFrom []string, msgBus *bus.MessageBus) *DiscordChannel {
	return &DiscordChannel{
		BaseChannel: BaseChannel{
			ChannelName: "discord",
			Bus:         msgBus,
			AllowFrom:   allowFrom,
		},
		Token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: log.WithPrefix("discord"),
	}
}

func (d *DiscordChannel) Name() string    { return "discord" }
func (d *DiscordChannel) IsRunning() bool { return d.Running }

// gatewayPayload is a Discord gateway frame.
type gatewayPayload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int            `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

// Start connects to the Discord gateway, identifies, and listens for DM
// message events until ctx is cancelled.
func (d *DiscordChannel) Start(ctx context.Context) error {
	if d.Token == "" {
		return fmt.Errorf("discord bot token not configured")
	}
	ctx, d.cancelFn = context.WithCancel(ctx)
	defer d.cancelFn()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, discordGatewayWS, nil)
	if err != nil {
		return fmt.Errorf("discord gateway dial: %w", err)
	}
	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()
	defer conn.Close()

	// First frame must be Hello (op 10) carrying the heartbeat interval.
	var hello gatewayPayload
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("discord gateway hello: %w", err)
	}
	var helloData struct {
		HeartbeatInterval int `json:"heartbeat_interval"`
	}
	json.Unmarshal(hello.D, &helloData)
	if helloData.HeartbeatInterval <= 0 {
		helloData.HeartbeatInterval = 41250
	}

	if err := d.identify(conn); err != nil {
		return fmt.Errorf("discord identify: %w", err)
	}
	d.Running = true

	var seq int
	var seqMu sync.Mutex

	go func() {
		ticker := time.NewTicker(time.Duration(helloData.HeartbeatInterval) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				seqMu.Lock()
				s := seq
				seqMu.Unlock()
				d.writeJSON(map[string]any{"op": 1, "d": s})
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			d.Running = false
			return nil
		default:
		}

		var frame gatewayPayload
		if err := conn.ReadJSON(&frame); err != nil {
			d.Running = false
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("discord gateway read: %w", err)
		}
		if frame.S != nil {
			seqMu.Lock()
			seq = *frame.S
			seqMu.Unlock()
		}

		switch frame.Op {
		case 0: // dispatch
			d.processDispatch(frame.T, frame.D)
		case 1: // heartbeat request
			seqMu.Lock()
			s := seq
			seqMu.Unlock()
			d.writeJSON(map[string]any{"op": 1, "d": s})
		case 7, 9: // reconnect / invalid session
			d.Running = false
			return fmt.Errorf("discord gateway asked to reconnect (op %d)", frame.Op)
		}
	}
}

// Stop stops the Discord channel.
func (d *DiscordChannel) Stop() error {
	d.Running = false
	if d.cancelFn != nil {
		d.cancelFn()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	return nil
}

// Send posts a message to a Discord channel, chunked to the 2000-char limit.
func (d *DiscordChannel) Send(msg bus.OutboundMessage) error {
	content := MarkdownForDiscord(msg.Content)
	for _, chunk := range SplitMessage(content, discordMaxLength) {
		body, _ := json.Marshal(map[string]string{"content": chunk})
		req, err := http.NewRequest("POST",
			fmt.Sprintf("%s/channels/%s/messages", discordAPIBase, msg.ChatID),
			bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bot "+d.Token)

		resp, err := d.client.Do(req)
		if err != nil {
			return fmt.Errorf("discord send: %w", err)
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("discord send: HTTP %d", resp.StatusCode)
		}
	}
	return nil
}

func (d *DiscordChannel) identify(conn *websocket.Conn) error {
	return conn.WriteJSON(map[string]any{
		"op": 2,
		"d": map[string]any{
			"token":   d.Token,
			"intents": discordIntents,
			"properties": map[string]string{
				"os":      "linux",
				"browser": "kanobot",
				"device":  "kanobot",
			},
		},
	})
}

func (d *DiscordChannel) writeJSON(v any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return
	}
	if err := d.conn.WriteJSON(v); err != nil {
		d.logger.Error("gateway write failed", "err", err)
	}
}

// discordMessage is the subset of a MESSAGE_CREATE event we care about.
type discordMessage struct {
	ID        string  `json:"id"`
	ChannelID string  `json:"channel_id"`
	GuildID   *string `json:"guild_id"`
	Content   string  `json:"content"`
	Author    struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Bot      bool   `json:"bot"`
	} `json:"author"`
	Attachments []struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	} `json:"attachments"`
}

func (d *DiscordChannel) processDispatch(event string, data json.RawMessage) {
	switch event {
	case "READY":
		var ready struct {
			User struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"user"`
		}
		if json.Unmarshal(data, &ready) == nil {
			d.botUserID = ready.User.ID
			d.logger.Info("connected", "bot", ready.User.Username)
		}
	case "MESSAGE_CREATE":
		var msg discordMessage
		if json.Unmarshal(data, &msg) != nil {
			return
		}
		d.processMessage(msg)
	}
}

func (d *DiscordChannel) processMessage(msg discordMessage) {
	// Own and other-bot messages, and anything outside a DM, are ignored.
	if msg.Author.Bot || msg.Author.ID == d.botUserID {
		return
	}
	if msg.GuildID != nil {
		return
	}

	senderID := msg.Author.ID + "|" + msg.Author.Username

	contentParts := []string{}
	var media []string
	if msg.Content != "" {
		contentParts = append(contentParts, msg.Content)
	}
	for _, att := range msg.Attachments {
		media = append(media, att.URL)
		contentParts = append(contentParts, fmt.Sprintf("[attachment: %s]", att.Filename))
	}
	content := "[empty message]"
	if len(contentParts) > 0 {
		content = strings.Join(contentParts, "\n")
	}

	d.HandleMessage(senderID, msg.ChannelID, content, media, map[string]any{
		"message_id": msg.ID,
		"user_id":    msg.Author.ID,
		"username":   msg.Author.Username,
	})
}
