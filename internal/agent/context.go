package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// BootstrapFiles are loaded into the system prompt when present.
var BootstrapFiles = []string{"AGENTS.md", "SOUL.md", "USER.md", "TOOLS.md", "IDENTITY.md"}

// jamReasonPrompt drives the first JAM call: analyze the dilemma, do not
// answer it. Korean register matches the product's audience.
const jamReasonPrompt = "너는 사용자의 고민을 깊이 분석하는 전문가야.\n" +
	"질문에 대해 다음을 300~500자로 분석해:\n" +
	"1. 핵심 고려사항 3~5개\n" +
	"2. 왜 이 결정을 추천하는지\n" +
	"3. 반대 의견도 인정하되, 추천 이유가 더 강한 이유\n" +
	"4. 친근한 톤 유지"

// jamAnswerPrompt drives the second JAM call: pick exactly one side, short,
// informal, one emoji, no hedging.
const jamAnswerPrompt = "너는 JustAnswerMe의 AI 결정 도우미야.\n" +
	"유저의 고민에 대해:\n" +
	"1. 반드시 한 쪽을 선택해서 단답으로 답해\n" +
	"2. \"양쪽 다 장단점이...\" 같은 양시론 절대 금지\n" +
	"3. 친한 형/누나 톤으로 (반말)\n" +
	"4. 답변은 10자 이내\n" +
	"5. 이모지 1개 포함\n" +
	"6. 자연스러운 한국어 (번역체 금지)"

// ContextBuilder assembles system prompts and message lists for the agent.
type ContextBuilder struct {
	Workspace string
	Memory    *MemoryStore
	Skills    *SkillsLoader
}

// NewContextBuilder creates a ContextBuilder for a workspace.
func NewContextBuilder(workspace string) *ContextBuilder {
	return &ContextBuilder{
		Workspace: workspace,
		Memory:    NewMemoryStore(workspace),
		Skills:    NewSkillsLoader(workspace, ""),
	}
}

// BuildSystemPrompt builds the full system prompt from identity, bootstrap, memory, and skills.
func (c *ContextBuilder) BuildSystemPrompt(skillNames []string) string {
	var parts []string

	parts = append(parts, c.getIdentity())

	if bs := c.loadBootstrapFiles(); bs != "" {
		parts = append(parts, bs)
	}

	if mem := c.Memory.GetMemoryContext(); mem != "" {
		parts = append(parts, fmt.Sprintf("# Memory\n\n%s", mem))
	}

	if summary := c.Skills.BuildSkillsSummary(); summary != "" {
		parts = append(parts, fmt.Sprintf(`# Skills

The following skills extend your capabilities. To use a skill, read its SKILL.md file.

%s`, summary))
	}

	return strings.Join(parts, "\n\n---\n\n")
}

func (c *ContextBuilder) getIdentity() string {
	now := time.Now().Format("2006-01-02 15:04 (Monday)")
	tz, _ := time.Now().Zone()
	sys := runtime.GOOS
	if sys == "darwin" {
		sys = "macOS"
	}
	rt := fmt.Sprintf("%s %s, Go %s", sys, runtime.GOARCH, runtime.Version())
	ws, _ := filepath.Abs(c.Workspace)

	return fmt.Sprintf(`# kanobot 🐈

You are kanobot, a helpful AI assistant. You have access to tools that allow you to:
- Search the web and fetch web pages
- Send messages to users on chat channels
- Schedule reminders and recurring tasks

## Current Time
%s (%s)

## Runtime
%s

## Workspace
Your workspace is at: %s
- Long-term memory: %s/memory/MEMORY.md
- History log: %s/memory/HISTORY.md (grep-searchable)
- Custom skills: %s/skills/{skill-name}/SKILL.md

IMPORTANT: When responding to direct questions or conversations, reply directly with your text response.
Only use the 'message' tool when you need to send a message to a different chat channel.
For normal conversation, just respond with text - do not call the message tool.

Always be helpful, accurate, and concise.`, now, tz, rt, ws, ws, ws, ws)
}

func (c *ContextBuilder) loadBootstrapFiles() string {
	var parts []string
	for _, name := range BootstrapFiles {
		path := filepath.Join(c.Workspace, name)
		data, err := os.ReadFile(path)
		if err == nil {
			parts = append(parts, fmt.Sprintf("## %s\n\n%s", name, string(data)))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n")
}

// BuildMessages constructs the full message list for an LLM call.
func (c *ContextBuilder) BuildMessages(history []map[string]any, userMsg string, channel, chatID string) []map[string]any {
	systemPrompt := c.BuildSystemPrompt(nil)
	if channel != "" && chatID != "" {
		systemPrompt += fmt.Sprintf("\n\n## Current Session\nChannel: %s\nChat ID: %s", channel, chatID)
	}

	messages := []map[string]any{
		{"role": "system", "content": systemPrompt},
	}
	messages = append(messages, history...)
	messages = append(messages, map[string]any{"role": "user", "content": userMsg})
	return messages
}

// BuildJamReasonMessages builds the message list for the JAM reasoning step.
// No session history, no system prompt carryover.
func (c *ContextBuilder) BuildJamReasonMessages(question string) []map[string]any {
	return []map[string]any{
		{"role": "system", "content": jamReasonPrompt},
		{"role": "user", "content": question},
	}
}

// BuildJamAnswerMessages builds the message list for the JAM answer step. The
// reasoning from step one is folded into the user turn alongside the original
// question.
func (c *ContextBuilder) BuildJamAnswerMessages(question, reasoning string) []map[string]any {
	return []map[string]any{
		{"role": "system", "content": jamAnswerPrompt},
		{"role": "user", "content": fmt.Sprintf("질문: %s\n분석: %s", question, reasoning)},
	}
}

// AddToolResult appends a tool result message.
func (c *ContextBuilder) AddToolResult(messages []map[string]any, toolCallID, toolName, result string) []map[string]any {
	return append(messages, map[string]any{
		"role":         "tool",
		"tool_call_id": toolCallID,
		"name":         toolName,
		"content":      result,
	})
}

// AddAssistantMessage appends an assistant message with optional tool calls.
func (c *ContextBuilder) AddAssistantMessage(messages []map[string]any, content string, toolCalls []map[string]any) []map[string]any {
	msg := map[string]any{"role": "assistant", "content": content}
	if len(toolCalls) > 0 {
		msg["tool_calls"] = toolCalls
	}
	return append(messages, msg)
}
