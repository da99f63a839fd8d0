// Package channels defines the Channel interface and the shared preprocessing
// every chat platform adapter goes through before a message reaches the bus.
package channels

import (
	"context"
	"strings"
	"time"

	"github.com/Laeyoung/kanobot/internal/bus"
)

// Channel is the capability set every chat platform adapter implements.
type Channel interface {
	// Name returns the channel identifier (e.g., "telegram", "discord").
	Name() string

	// Start connects to the platform and begins listening. Blocks until ctx
	// is cancelled or the connection fails.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel. Safe to call even if Start
	// failed or was never called.
	Stop() error

	// Send delivers an outbound message through this channel, chunking
	// content that exceeds the platform's size limit.
	Send(msg bus.OutboundMessage) error

	// IsRunning returns whether the channel is active.
	IsRunning() bool
}

// BaseChannel provides the shared inbound path for all adapters: access
// control, JAM prefix detection, envelope construction, bus publication.
type BaseChannel struct {
	ChannelName string
	Bus         *bus.MessageBus
	AllowFrom   []string
	Running     bool
}

// IsAllowed checks if a sender is permitted to interact with the bot.
// An empty allow-list permits everyone. Sender IDs of the form
// "platform_id|display_name" match on either component.
func (b *BaseChannel) IsAllowed(senderID string) bool {
	if len(b.AllowFrom) == 0 {
		return true
	}
	for _, allowed := range b.AllowFrom {
		if allowed == senderID {
			return true
		}
	}
	if strings.Contains(senderID, "|") {
		for _, part := range strings.Split(senderID, "|") {
			if part == "" {
				continue
			}
			for _, allowed := range b.AllowFrom {
				if allowed == part {
					return true
				}
			}
		}
	}
	return false
}

// DetectJamPrefix checks content for a case-insensitive "!jam " or "/jam "
// prefix followed by a non-empty question. On match it returns the question
// with the prefix stripped, plus a copy of metadata with mode=jam merged in
// (existing keys preserved). On no match both pass through unchanged.
//
// "!jamming" and "/jamtest" do not match (the space is required), and a bare
// "!jam " with nothing after it does not either.
func DetectJamPrefix(content string, metadata map[string]any) (string, map[string]any) {
	for _, prefix := range []string{"!jam ", "/jam "} {
		if len(content) < len(prefix) {
			continue
		}
		if !strings.EqualFold(content[:len(prefix)], prefix) {
			continue
		}
		question := strings.TrimSpace(content[len(prefix):])
		if question == "" {
			return content, metadata
		}
		merged := make(map[string]any, len(metadata)+1)
		for k, v := range metadata {
			merged[k] = v
		}
		merged["mode"] = "jam"
		return question, merged
	}
	return content, metadata
}

// HandleMessage runs the shared preprocessing and publishes an envelope.
// Messages from disallowed senders are dropped silently before any envelope
// exists.
func (b *BaseChannel) HandleMessage(senderID, chatID, content string, media []string, metadata map[string]any) {
	if !b.IsAllowed(senderID) {
		return
	}
	content, metadata = DetectJamPrefix(content, metadata)
	b.Bus.PublishInbound(bus.InboundMessage{
		Channel:   b.ChannelName,
		SenderID:  senderID,
		ChatID:    chatID,
		Content:   content,
		Timestamp: time.Now(),
		Media:     media,
		Metadata:  metadata,
	})
}

// SplitMessage splits text into ordered chunks of at most limit characters.
// Split priority: last newline before the limit, then last space, then a hard
// cut at exactly the limit. Leading newlines on the remainder are stripped
// before continuing.
func SplitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for text != "" {
		if len(text) <= limit {
			chunks = append(chunks, text)
			break
		}

		splitPos := strings.LastIndex(text[:limit], "\n")
		if splitPos == -1 {
			splitPos = strings.LastIndex(text[:limit], " ")
		}
		// A separator at index 0 would produce an empty chunk and no
		// progress; hard-cut instead.
		if splitPos <= 0 {
			splitPos = limit
		}

		chunks = append(chunks, text[:splitPos])
		text = strings.TrimLeft(text[splitPos:], "\n")
	}
	return chunks
}
