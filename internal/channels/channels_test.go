package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laeyoung/kanobot/internal/bus"
)

// --- Manager ---

type stubChannel struct {
	BaseChannel
	name    string
	started bool
	stopped bool
	sent    []bus.OutboundMessage
}

func (s *stubChannel) Name() string    { return s.name }
func (s *stubChannel) IsRunning() bool { return s.started && !s.stopped }
func (s *stubChannel) Start(ctx context.Context) error {
	s.started = true
	return nil
}
func (s *stubChannel) Stop() error {
	s.stopped = true
	return nil
}
func (s *stubChannel) Send(msg bus.OutboundMessage) error {
	s.sent = append(s.sent, msg)
	return nil
}

func TestManager_RegisterAndGet(t *testing.T) {
	b := bus.NewMessageBus()
	m := NewManager(b)
	ch := &stubChannel{name: "stub"}
	m.Register(ch)

	assert.Equal(t, ch, m.Get("stub"))
	assert.Nil(t, m.Get("missing"))
	assert.Equal(t, []string{"stub"}, m.EnabledChannels())
}

func TestManager_StartAllWiresOutbound(t *testing.T) {
	b := bus.NewMessageBus()
	m := NewManager(b)
	ch := &stubChannel{name: "stub"}
	m.Register(ch)

	require.NoError(t, m.StartAll(context.Background()))
	require.True(t, b.HasHandler("stub"))

	b.PublishOutbound(bus.OutboundMessage{Channel: "stub", ChatID: "c1", Content: "hi"})
	require.Len(t, ch.sent, 1)
	assert.Equal(t, "hi", ch.sent[0].Content)
}

func TestManager_StopAllUnregistersHandlers(t *testing.T) {
	b := bus.NewMessageBus()
	m := NewManager(b)
	ch := &stubChannel{name: "stub"}
	m.Register(ch)

	require.NoError(t, m.StartAll(context.Background()))
	m.StopAll()

	assert.True(t, ch.stopped)
	assert.False(t, b.HasHandler("stub"))
}

// --- Telegram ---

func TestTelegramChannel_Interface(t *testing.T) {
	ch := NewTelegramChannel("test-token", nil, bus.NewMessageBus())
	var _ Channel = ch
	assert.Equal(t, "telegram", ch.Name())
	assert.False(t, ch.IsRunning())
}

func TestTelegramChannel_StartNoToken(t *testing.T) {
	ch := NewTelegramChannel("", nil, bus.NewMessageBus())
	assert.Error(t, ch.Start(context.Background()))
}

func TestTelegramChannel_StopBeforeStart(t *testing.T) {
	ch := NewTelegramChannel("test-token", nil, bus.NewMessageBus())
	assert.NoError(t, ch.Stop())
}

func TestTelegramChannel_SendInvalidChatID(t *testing.T) {
	ch := NewTelegramChannel("test-token", nil, bus.NewMessageBus())
	err := ch.Send(bus.OutboundMessage{Channel: "telegram", ChatID: "direct", Content: "hi"})
	assert.Error(t, err)
}

// --- Discord ---

func TestDiscordChannel_Interface(t *testing.T) {
	ch := NewDiscordChannel("test-token", nil, bus.NewMessageBus())
	var _ Channel = ch
	assert.Equal(t, "discord", ch.Name())
}

func TestDiscordChannel_StartNoToken(t *testing.T) {
	ch := NewDiscordChannel("", nil, bus.NewMessageBus())
	assert.Error(t, ch.Start(context.Background()))
}

func TestMarkdownForDiscord_LinksConverted(t *testing.T) {
	result := MarkdownForDiscord("Check [docs](https://example.com) now")
	assert.Equal(t, "Check docs (<https://example.com>) now", result)
}

func TestMarkdownForDiscord_NativePassesThrough(t *testing.T) {
	text := "**bold** *italic* ~~strike~~ `code`"
	assert.Equal(t, text, MarkdownForDiscord(text))
}

func TestDiscordChannel_GuildMessagesIgnored(t *testing.T) {
	b := bus.NewMessageBus()
	ch := NewDiscordChannel("test-token", nil, b)

	guild := "12345"
	ch.processMessage(discordMessage{
		ID: "1", ChannelID: "c1", GuildID: &guild, Content: "hi",
	})
	assert.Equal(t, 0, b.InboundSize())
}

func TestDiscordChannel_BotMessagesIgnored(t *testing.T) {
	b := bus.NewMessageBus()
	ch := NewDiscordChannel("test-token", nil, b)

	msg := discordMessage{ID: "1", ChannelID: "c1", Content: "hi"}
	msg.Author.ID = "2"
	msg.Author.Bot = true
	ch.processMessage(msg)
	assert.Equal(t, 0, b.InboundSize())
}

func TestDiscordChannel_DMPublished(t *testing.T) {
	b := bus.NewMessageBus()
	ch := NewDiscordChannel("test-token", nil, b)

	msg := discordMessage{ID: "7", ChannelID: "c1", Content: "hello bot"}
	msg.Author.ID = "42"
	msg.Author.Username = "alice"
	ch.processMessage(msg)

	published := consumeOne(t, b)
	assert.Equal(t, "discord", published.Channel)
	assert.Equal(t, "42|alice", published.SenderID)
	assert.Equal(t, "c1", published.ChatID)
	assert.Equal(t, "hello bot", published.Content)
}

func TestDiscordChannel_AttachmentsBecomeMedia(t *testing.T) {
	b := bus.NewMessageBus()
	ch := NewDiscordChannel("test-token", nil, b)

	msg := discordMessage{ID: "7", ChannelID: "c1", Content: "look"}
	msg.Author.ID = "42"
	msg.Author.Username = "alice"
	msg.Attachments = []struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	}{{URL: "https://cdn.example/cat.png", Filename: "cat.png"}}
	ch.processMessage(msg)

	published := consumeOne(t, b)
	assert.Equal(t, []string{"https://cdn.example/cat.png"}, published.Media)
	assert.Contains(t, published.Content, "[attachment: cat.png]")
}

// --- Slack ---

func TestSlackChannel_Interface(t *testing.T) {
	ch := NewSlackChannel("bot-token", "app-token", nil, bus.NewMessageBus())
	var _ Channel = ch
	assert.Equal(t, "slack", ch.Name())
}

func TestSlackChannel_StartMissingTokens(t *testing.T) {
	ch := NewSlackChannel("", "app", nil, bus.NewMessageBus())
	assert.Error(t, ch.Start(context.Background()))

	ch = NewSlackChannel("bot", "", nil, bus.NewMessageBus())
	assert.Error(t, ch.Start(context.Background()))
}

func TestMarkdownForSlack_BoldAndStrike(t *testing.T) {
	assert.Equal(t, "*bold* and ~gone~", MarkdownForSlack("**bold** and ~~gone~~"))
}

func TestMarkdownForSlack_CodeProtected(t *testing.T) {
	text := "`**not bold**` and ```\n**also not**\n```"
	assert.Equal(t, text, MarkdownForSlack(text))
}

func TestSlackChannel_ProcessEventDM(t *testing.T) {
	b := bus.NewMessageBus()
	ch := NewSlackChannel("bot-token", "app-token", nil, b)
	ch.userCache["U123"] = "alice"

	ch.ProcessEvent(map[string]any{
		"type":         "message",
		"channel_type": "im",
		"user":         "U123",
		"channel":      "D456",
		"text":         "hello",
	})

	published := consumeOne(t, b)
	assert.Equal(t, "slack", published.Channel)
	assert.Equal(t, "U123|alice", published.SenderID)
	assert.Equal(t, "D456", published.ChatID)
	assert.Equal(t, "hello", published.Content)
}

func TestSlackChannel_NonDMIgnored(t *testing.T) {
	b := bus.NewMessageBus()
	ch := NewSlackChannel("bot-token", "app-token", nil, b)

	ch.ProcessEvent(map[string]any{
		"type":         "message",
		"channel_type": "channel",
		"user":         "U123",
		"channel":      "C456",
		"text":         "hello",
	})
	assert.Equal(t, 0, b.InboundSize())
}

func TestSlackChannel_BotAndSubtypeIgnored(t *testing.T) {
	b := bus.NewMessageBus()
	ch := NewSlackChannel("bot-token", "app-token", nil, b)

	ch.ProcessEvent(map[string]any{
		"type": "message", "channel_type": "im",
		"user": "U1", "channel": "D1", "text": "x", "bot_id": "B9",
	})
	ch.ProcessEvent(map[string]any{
		"type": "message", "channel_type": "im",
		"user": "U1", "channel": "D1", "text": "x", "subtype": "message_changed",
	})
	assert.Equal(t, 0, b.InboundSize())
}

func TestSlackChannel_SendConvertsMarkdown(t *testing.T) {
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		got = append(got, body)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	ch := NewSlackChannel("bot-token", "app-token", nil, bus.NewMessageBus())
	ch.apiBase = srv.URL

	err := ch.Send(bus.OutboundMessage{Channel: "slack", ChatID: "D1", Content: "**important**"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "*important*", got[0]["text"])
	assert.Equal(t, "D1", got[0]["channel"])
}

func TestSlackChannel_JamPrefixThroughSharedPath(t *testing.T) {
	b := bus.NewMessageBus()
	ch := NewSlackChannel("bot-token", "app-token", nil, b)
	ch.userCache["U123"] = "alice"

	ch.ProcessEvent(map[string]any{
		"type":         "message",
		"channel_type": "im",
		"user":         "U123",
		"channel":      "D456",
		"text":         "!jam pizza or chicken?",
	})

	published := consumeOne(t, b)
	assert.Equal(t, "pizza or chicken?", published.Content)
	assert.Equal(t, bus.ModeJam, published.Mode())
	// Adapter-supplied metadata survives the merge.
	assert.Equal(t, "U123", published.Metadata["user_id"])
}
