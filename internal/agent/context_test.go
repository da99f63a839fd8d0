package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextBuilder_BuildSystemPrompt_Basic(t *testing.T) {
	ws := t.TempDir()
	cb := NewContextBuilder(ws)
	prompt := cb.BuildSystemPrompt(nil)
	assert.Contains(t, prompt, "# kanobot")
	assert.Contains(t, prompt, "workspace")
}

func TestContextBuilder_BuildSystemPrompt_WithMemory(t *testing.T) {
	ws := t.TempDir()
	cb := NewContextBuilder(ws)
	cb.Memory.WriteLongTerm("User is a Go developer")
	prompt := cb.BuildSystemPrompt(nil)
	assert.Contains(t, prompt, "# Memory")
	assert.Contains(t, prompt, "User is a Go developer")
}

func TestContextBuilder_BuildSystemPrompt_WithBootstrap(t *testing.T) {
	ws := t.TempDir()
	os.WriteFile(filepath.Join(ws, "AGENTS.md"), []byte("I am an agent"), 0o644)
	cb := NewContextBuilder(ws)
	prompt := cb.BuildSystemPrompt(nil)
	assert.Contains(t, prompt, "## AGENTS.md")
	assert.Contains(t, prompt, "I am an agent")
}

func TestContextBuilder_BuildMessages(t *testing.T) {
	ws := t.TempDir()
	cb := NewContextBuilder(ws)
	history := []map[string]any{
		{"role": "user", "content": "Hello"},
		{"role": "assistant", "content": "Hi there!"},
	}
	msgs := cb.BuildMessages(history, "What's 2+2?", "telegram", "123")

	require.Len(t, msgs, 4) // system + 2 history + user
	assert.Equal(t, "system", msgs[0]["role"])
	assert.Contains(t, msgs[0]["content"], "Channel: telegram")
	assert.Equal(t, "user", msgs[1]["role"])
	assert.Equal(t, "Hello", msgs[1]["content"])
	assert.Equal(t, "What's 2+2?", msgs[3]["content"])
}

func TestContextBuilder_BuildMessages_NoChannel(t *testing.T) {
	ws := t.TempDir()
	cb := NewContextBuilder(ws)
	msgs := cb.BuildMessages(nil, "Hi", "", "")
	require.Len(t, msgs, 2) // system + user
	assert.NotContains(t, msgs[0]["content"], "Channel:")
}

func TestContextBuilder_JamReasonMessages(t *testing.T) {
	cb := NewContextBuilder(t.TempDir())
	msgs := cb.BuildJamReasonMessages("치킨 먹을까? 피자 먹을까?")

	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0]["role"])
	assert.Contains(t, msgs[0]["content"], "핵심 고려사항")
	assert.Equal(t, "user", msgs[1]["role"])
	assert.Contains(t, msgs[1]["content"], "치킨")
}

func TestContextBuilder_JamReasonPrompt_MentionsNoTools(t *testing.T) {
	cb := NewContextBuilder(t.TempDir())
	msgs := cb.BuildJamReasonMessages("아무 질문")
	system, _ := msgs[0]["content"].(string)
	assert.NotContains(t, strings.ToLower(system), "tool")
	assert.NotContains(t, strings.ToLower(system), "function")
}

func TestContextBuilder_JamAnswerMessages(t *testing.T) {
	cb := NewContextBuilder(t.TempDir())
	msgs := cb.BuildJamAnswerMessages("이직할까?", "분석 내용...")

	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0]["role"])
	assert.Contains(t, msgs[0]["content"], "10자 이내")
	assert.Contains(t, msgs[0]["content"], "양시론")
	assert.Equal(t, "user", msgs[1]["role"])
	assert.Contains(t, msgs[1]["content"], "질문: 이직할까?")
	assert.Contains(t, msgs[1]["content"], "분석: 분석 내용...")
}

func TestContextBuilder_JamAnswerPrompt_EnforcesConstraints(t *testing.T) {
	cb := NewContextBuilder(t.TempDir())
	msgs := cb.BuildJamAnswerMessages("q", "r")
	system, _ := msgs[0]["content"].(string)
	assert.Contains(t, system, "반말")
	assert.Contains(t, system, "이모지")
	assert.Contains(t, system, "한 쪽")
}

func TestContextBuilder_JamAnswerIncludesReasoning(t *testing.T) {
	cb := NewContextBuilder(t.TempDir())
	reasoning := "치킨은 바삭하고 맥주와 잘 어울린다."
	msgs := cb.BuildJamAnswerMessages("치킨 vs 피자?", reasoning)
	userContent, _ := msgs[1]["content"].(string)
	assert.Contains(t, userContent, reasoning)
	assert.Contains(t, userContent, "치킨 vs 피자?")
}

func TestContextBuilder_AddToolResult(t *testing.T) {
	cb := NewContextBuilder(t.TempDir())
	msgs := cb.AddToolResult(nil, "call_1", "web_fetch", "page content")
	require.Len(t, msgs, 1)
	assert.Equal(t, "tool", msgs[0]["role"])
	assert.Equal(t, "call_1", msgs[0]["tool_call_id"])
	assert.Equal(t, "web_fetch", msgs[0]["name"])
}

func TestContextBuilder_AddAssistantMessage(t *testing.T) {
	cb := NewContextBuilder(t.TempDir())
	toolCalls := []map[string]any{
		{"id": "call_1", "type": "function", "function": map[string]any{"name": "web_search"}},
	}
	msgs := cb.AddAssistantMessage(nil, "Let me search that", toolCalls)
	require.Len(t, msgs, 1)
	assert.Equal(t, "assistant", msgs[0]["role"])
	assert.Equal(t, "Let me search that", msgs[0]["content"])
	assert.NotNil(t, msgs[0]["tool_calls"])
}

func TestContextBuilder_AddAssistantMessage_NoToolCalls(t *testing.T) {
	cb := NewContextBuilder(t.TempDir())
	msgs := cb.AddAssistantMessage(nil, "Just text", nil)
	assert.Nil(t, msgs[0]["tool_calls"])
}
