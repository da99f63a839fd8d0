package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageBus(t *testing.T) {
	b := NewMessageBus()
	assert.NotNil(t, b)
	assert.Equal(t, 0, b.InboundSize())
}

func TestMessageBus_PublishConsumeInbound(t *testing.T) {
	b := NewMessageBus()
	b.PublishInbound(InboundMessage{Channel: "telegram", Content: "hello"})
	assert.Equal(t, 1, b.InboundSize())

	msg, ok := b.ConsumeInbound(context.Background())
	require.True(t, ok)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "telegram", msg.Channel)
}

func TestMessageBus_ConsumeInboundFIFO(t *testing.T) {
	b := NewMessageBus()
	for _, c := range []string{"first", "second", "third"} {
		b.PublishInbound(InboundMessage{Channel: "cli", Content: c})
	}
	for _, want := range []string{"first", "second", "third"} {
		msg, ok := b.ConsumeInbound(context.Background())
		require.True(t, ok)
		assert.Equal(t, want, msg.Content)
	}
}

func TestMessageBus_ConsumeInboundCancelled(t *testing.T) {
	b := NewMessageBus()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		_, ok := b.ConsumeInbound(ctx)
		assert.False(t, ok)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ConsumeInbound did not return after cancel")
	}
}

func TestMessageBus_PublishOutboundRouted(t *testing.T) {
	b := NewMessageBus()

	var received []OutboundMessage
	b.RegisterOutbound("telegram", func(msg OutboundMessage) error {
		received = append(received, msg)
		return nil
	})

	b.PublishOutbound(OutboundMessage{Channel: "telegram", ChatID: "1", Content: "reply"})
	require.Len(t, received, 1)
	assert.Equal(t, "reply", received[0].Content)
	assert.Equal(t, "1", received[0].ChatID)
}

func TestMessageBus_PublishOutboundUnregisteredDropped(t *testing.T) {
	b := NewMessageBus()
	// Must not panic or error; the message is dropped with a warning.
	b.PublishOutbound(OutboundMessage{Channel: "discord", Content: "lost"})
	assert.False(t, b.HasHandler("discord"))
}

func TestMessageBus_RegisterOutboundLastWins(t *testing.T) {
	b := NewMessageBus()

	var first, second int
	b.RegisterOutbound("slack", func(OutboundMessage) error { first++; return nil })
	b.RegisterOutbound("slack", func(OutboundMessage) error { second++; return nil })

	b.PublishOutbound(OutboundMessage{Channel: "slack", Content: "hi"})
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestMessageBus_UnregisterOutbound(t *testing.T) {
	b := NewMessageBus()
	b.RegisterOutbound("slack", func(OutboundMessage) error { return nil })
	require.True(t, b.HasHandler("slack"))

	b.UnregisterOutbound("slack")
	assert.False(t, b.HasHandler("slack"))
}

func TestMessageBus_ConcurrentPublish(t *testing.T) {
	b := NewMessageBus()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.PublishInbound(InboundMessage{Channel: "test", Content: "msg"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, b.InboundSize())
}
