// Package bus provides the async message bus for decoupled channel-agent communication.
package bus

import "time"

// Mode classifies how the agent processes an inbound message.
type Mode int

const (
	// ModeStandard is the normal tool-using agent loop.
	ModeStandard Mode = iota
	// ModeJam is the two-step forced-decision protocol (JustAnswerMe).
	ModeJam
)

func (m Mode) String() string {
	if m == ModeJam {
		return "jam"
	}
	return "standard"
}

// InboundMessage is received from a chat channel.
type InboundMessage struct {
	Channel   string         `json:"channel"`
	SenderID  string         `json:"sender_id"`
	ChatID    string         `json:"chat_id"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Media     []string       `json:"media,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// SessionKey returns the unique key for session identification.
func (m *InboundMessage) SessionKey() string {
	return m.Channel + ":" + m.ChatID
}

// Mode derives the processing mode from metadata. Total: every message maps
// to exactly one mode, and a nil metadata map means standard.
func (m *InboundMessage) Mode() Mode {
	if m.Metadata != nil && m.Metadata["mode"] == "jam" {
		return ModeJam
	}
	return ModeStandard
}

// OutboundMessage is sent to a chat channel. Content is text-only; platform
// formatting and chunking happen inside the adapter's Send.
type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}
