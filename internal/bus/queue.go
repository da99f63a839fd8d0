package bus

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// OutboundHandler delivers an outbound message to its platform.
type OutboundHandler func(OutboundMessage) error

// MessageBus pairs channel adapters (producers) with the single agent consumer
// on the inbound side, and routes agent replies to the right adapter on the
// outbound side. Inbound delivery is FIFO in arrival order; no ordering is
// claimed between different channels beyond that.
type MessageBus struct {
	inbound chan InboundMessage

	mu       sync.RWMutex
	handlers map[string]OutboundHandler
	logger   *log.Logger
}

// NewMessageBus creates a message bus with a buffered inbound queue.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundMessage, 100),
		handlers: make(map[string]OutboundHandler),
		logger:   log.WithPrefix("bus"),
	}
}

// PublishInbound enqueues a message from a channel to the agent. Safe for
// concurrent producers; blocks only when the queue buffer is full.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	b.inbound <- msg
}

// ConsumeInbound returns the next inbound message in FIFO order, blocking
// until one is available. ok is false when ctx is cancelled. The agent
// dispatch loop is the sole caller.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case <-ctx.Done():
		return InboundMessage{}, false
	case msg := <-b.inbound:
		return msg, true
	}
}

// RegisterOutbound associates a channel name with a delivery handler.
// At most one handler per channel; the last registration wins.
func (b *MessageBus) RegisterOutbound(channel string, handler OutboundHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[channel]; exists {
		b.logger.Warn("replacing outbound handler", "channel", channel)
	}
	b.handlers[channel] = handler
}

// UnregisterOutbound removes a channel's handler. Stopping adapters call this
// so no orphaned handler keeps pointing at a dead connection.
func (b *MessageBus) UnregisterOutbound(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, channel)
}

// PublishOutbound delivers a response to the adapter registered for its
// channel. An unregistered channel is a configuration error: the message is
// dropped with a warning, never raised to the agent loop.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.mu.RLock()
	handler := b.handlers[msg.Channel]
	b.mu.RUnlock()

	if handler == nil {
		b.logger.Warn("no outbound handler registered, dropping message", "channel", msg.Channel, "chat_id", msg.ChatID)
		return
	}
	if err := handler(msg); err != nil {
		b.logger.Error("outbound delivery failed", "channel", msg.Channel, "err", err)
	}
}

// InboundSize returns the number of pending inbound messages.
func (b *MessageBus) InboundSize() int {
	return len(b.inbound)
}

// HasHandler reports whether a channel has a registered outbound handler.
func (b *MessageBus) HasHandler(channel string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.handlers[channel]
	return ok
}
