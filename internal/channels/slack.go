package channels

import (
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
	slackMaxLength = 4000
	slackAPIBase   = "https://slack.com/api"
)

var (
	slackCodeBlockRe = regexp.MustCompile("(?s)```[\\s\\S]*?```|`[^`]+`")
	slackBoldRe      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	slackStrikeRe    = regexp.MustCompile(`~~(.+?)~~`)
)

// MarkdownForSlack converts standard markdown to Slack mrkdwn: **bold** to
// *bold*, ~~strike~~ to ~strike~. Code spans and blocks are protected from
// conversion; links pass through since Slack renders them.
func MarkdownForSlack(text string) string {
	var saved []string
	text = slackCodeBlockRe.ReplaceAllStringFunc(text, func(m string) string {
		saved = append(saved, m)
		return fmt.Sprintf("\x00CODE%d\x00", len(saved)-1)
	})

	text = slackBoldRe.ReplaceAllString(text, "*$1*")
	text = slackStrikeRe.ReplaceAllString(text, "~$1~")

	for i, block := range saved {
		text = strings.Replace(text, fmt.Sprintf("\x00CODE%d\x00", i), block, 1)
	}
	return text
}

// SlackChannel is a DM-only Slack channel using Socket Mode, so no public
// URL is needed. Channel and group messages are ignored.
type SlackChannel struct {
	BaseChannel
	BotToken string
	AppToken string

	botUserID string
	apiBase   string
	conn      *websocket.Conn
	client    *http.Client
	cancelFn  context.CancelFunc
	userCache map[string]string
	mu        sync.Mutex
	logger    *log.Logger
}

// NewSlackChannel creates a SlackChannel.
func NewSlackChannel(botToken, appToken string, allowFrom []string, msgBus *bus.MessageBus) *SlackChannel {
	return &SlackChannel{
		BaseChannel: BaseChannel{
			ChannelName: "slack",
			Bus:         msgBus,
			AllowFrom:   allowFrom,
		},
		BotToken:  botToken,
		AppToken:  appToken,
		apiBase:   slackAPIBase,
		client:    &http.Client{Timeout: 30 * time.Second},
		userCache: make(map[string]string),
		logger:    log.WithPrefix("slack"),
	}
}

func (s *SlackChannel) Name() string    { return "slack" }
func (s *SlackChannel) IsRunning() bool { return s.Running }

// Start opens a Socket Mode connection and listens for DM events until ctx
// is cancelled.
func (s *SlackChannel) Start(ctx context.Context) error {
	if s.BotToken == "" {
		return fmt.Errorf("slack bot token not configured")
	}
	if s.AppToken == "" {
		return fmt.Errorf("slack app token not configured (required for Socket Mode)")
	}
	ctx, s.cancelFn = context.WithCancel(ctx)
	defer s.cancelFn()

	if result, err := s.slackAPI("auth.test", nil, s.BotToken); err == nil {
		if uid, ok := result["user_id"].(string); ok {
			s.botUserID = uid
			s.logger.Info("connected", "bot_user", uid)
		}
	}

	wsURL, err := s.openSocketModeURL()
	if err != nil {
		return fmt.Errorf("slack socket mode open: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("slack socket dial: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer conn.Close()

	s.Running = true
	for {
		select {
		case <-ctx.Done():
			s.Running = false
			return nil
		default:
		}

		var envelope struct {
			Type       string `json:"type"`
			EnvelopeID string `json:"envelope_id"`
			Payload    struct {
				Event map[string]any `json:"event"`
			} `json:"payload"`
		}
		if err := conn.ReadJSON(&envelope); err != nil {
			s.Running = false
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("slack socket read: %w", err)
		}

		// Every envelope with an ID must be acked promptly or Slack resends.
		if envelope.EnvelopeID != "" {
			s.writeJSON(map[string]string{"envelope_id": envelope.EnvelopeID})
		}

		switch envelope.Type {
		case "events_api":
			s.ProcessEvent(envelope.Payload.Event)
		case "disconnect":
			s.Running = false
			return fmt.Errorf("slack requested disconnect")
		}
	}
}

// Stop stops the Slack channel.
func (s *SlackChannel) Stop() error {
	s.Running = false
	if s.cancelFn != nil {
		s.cancelFn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	return nil
}

// Send posts a message to a Slack DM, converted to mrkdwn and chunked.
func (s *SlackChannel) Send(msg bus.OutboundMessage) error {
	content := MarkdownForSlack(msg.Content)
	for _, chunk := range SplitMessage(content, slackMaxLength) {
		params := map[string]any{
			"channel": msg.ChatID,
			"text":    chunk,
		}
		if _, err := s.slackAPI("chat.postMessage", params, s.BotToken); err != nil {
			return fmt.Errorf("slack send: %w", err)
		}
	}
	return nil
}

// ProcessEvent handles a Slack message event. Exported for the tests and for
// HTTP Events API integration.
func (s *SlackChannel) ProcessEvent(event map[string]any) {
	eventType, _ := event["type"].(string)
	if eventType != "message" {
		return
	}
	// Bot echoes and message edits carry bot_id or subtype.
	if event["bot_id"] != nil || event["subtype"] != nil {
		return
	}
	if channelType, _ := event["channel_type"].(string); channelType != "im" {
		return
	}

	userID, _ := event["user"].(string)
	chatID, _ := event["channel"].(string)
	text, _ := event["text"].(string)
	if userID == "" || chatID == "" || userID == s.botUserID {
		return
	}

	username := s.resolveUsername(userID)
	senderID := userID + "|" + username

	contentParts := []string{}
	var media []string
	if text != "" {
		contentParts = append(contentParts, text)
	}
	if files, ok := event["files"].([]any); ok {
		for _, f := range files {
			info, ok := f.(map[string]any)
			if !ok {
				continue
			}
			url, _ := info["url_private"].(string)
			name, _ := info["name"].(string)
			if name == "" {
				name = "file"
			}
			if url != "" {
				media = append(media, url)
				contentParts = append(contentParts, fmt.Sprintf("[attachment: %s]", name))
			}
		}
	}
	content := "[empty message]"
	if len(contentParts) > 0 {
		content = strings.Join(contentParts, "\n")
	}

	s.HandleMessage(senderID, chatID, content, media, map[string]any{
		"user_id":    userID,
		"username":   username,
		"channel_id": chatID,
	})
}

func (s *SlackChannel) resolveUsername(userID string) string {
	s.mu.Lock()
	if name, ok := s.userCache[userID]; ok {
		s.mu.Unlock()
		return name
	}
	s.mu.Unlock()

	username := userID
	if result, err := s.slackAPI("users.info", map[string]any{"user": userID}, s.BotToken); err == nil {
		if user, ok := result["user"].(map[string]any); ok {
			if name, _ := user["name"].(string); name != "" {
				username = name
			} else if realName, _ := user["real_name"].(string); realName != "" {
				username = realName
			}
		}
	}

	s.mu.Lock()
	s.userCache[userID] = username
	s.mu.Unlock()
	return username
}

func (s *SlackChannel) openSocketModeURL() (string, error) {
	result, err := s.slackAPI("apps.connections.open", nil, s.AppToken)
	if err != nil {
		return "", err
	}
	wsURL, _ := result["url"].(string)
	if wsURL == "" {
		return "", fmt.Errorf("apps.connections.open returned no url")
	}
	return wsURL, nil
}

func (s *SlackChannel) writeJSON(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return
	}
	if err := s.conn.WriteJSON(v); err != nil {
		s.logger.Error("socket write failed", "err", err)
	}
}

func (s *SlackChannel) slackAPI(method string, params map[string]any, token string) (map[string]any, error) {
	body, _ := json.Marshal(params)
	req, err := http.NewRequest("POST", s.apiBase+"/"+method, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if ok, _ := result["ok"].(bool); !ok {
		errMsg, _ := result["error"].(string)
		return result, fmt.Errorf("slack API %s: %s", method, errMsg)
	}
	return result, nil
}
