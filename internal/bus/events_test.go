package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInboundMessage_SessionKey(t *testing.T) {
	msg := InboundMessage{Channel: "telegram", ChatID: "12345"}
	assert.Equal(t, "telegram:12345", msg.SessionKey())
}

func TestInboundMessage_ModeJam(t *testing.T) {
	msg := InboundMessage{
		Channel:  "cli",
		Content:  "chicken or pizza?",
		Metadata: map[string]any{"mode": "jam"},
	}
	assert.Equal(t, ModeJam, msg.Mode())
}

func TestInboundMessage_ModeStandardByDefault(t *testing.T) {
	msg := InboundMessage{Channel: "cli", Content: "Hello"}
	assert.Equal(t, ModeStandard, msg.Mode())
}

func TestInboundMessage_ModeStandardNilMetadata(t *testing.T) {
	msg := InboundMessage{Metadata: nil}
	assert.Equal(t, ModeStandard, msg.Mode())
}

func TestInboundMessage_ModeOtherValuesAreStandard(t *testing.T) {
	for _, v := range []any{"JAM", "jam ", "", nil, 42, true} {
		msg := InboundMessage{Metadata: map[string]any{"mode": v}}
		assert.Equal(t, ModeStandard, msg.Mode(), "mode=%v", v)
	}
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "standard", ModeStandard.String())
	assert.Equal(t, "jam", ModeJam.String())
}
