package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Laeyoung/kanobot/internal/bus"
	"github.com/Laeyoung/kanobot/internal/providers"
	"github.com/Laeyoung/kanobot/internal/session"
	"github.com/Laeyoung/kanobot/internal/tools"
)

// contextualTool is implemented by tools that need to know which chat they
// are serving (message, cron).
type contextualTool interface {
	SetContext(channel, chatID string)
}

// AgentLoop is the core processing engine. It consumes the inbound queue
// sequentially, builds context, calls the LLM, executes tools, and publishes
// replies. One message is processed fully before the next is taken, so
// session state never needs locking.
type AgentLoop struct {
	Bus           *bus.MessageBus
	Provider      providers.LLMProvider
	Workspace     string
	Model         string
	MaxIterations int
	Temperature   float64
	MaxTokens     int
	MemoryWindow  int

	Context  *ContextBuilder
	Sessions *session.Manager
	Tools    *tools.Registry

	logger  *log.Logger
	mu      sync.Mutex
	running bool
}

// Config holds configuration for creating an AgentLoop.
type Config struct {
	Workspace     string
	Model         string
	MaxIterations int
	Temperature   float64
	MaxTokens     int
	MemoryWindow  int
}

// NewAgentLoop creates and configures an agent loop. Tools are registered by
// the caller on the returned loop's registry.
func NewAgentLoop(msgBus *bus.MessageBus, provider providers.LLMProvider, cfg Config) *AgentLoop {
	model := cfg.Model
	if model == "" {
		model = provider.DefaultModel()
	}
	maxIter := cfg.MaxIterations
	if maxIter == 0 {
		maxIter = 20
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	memWin := cfg.MemoryWindow
	if memWin == 0 {
		memWin = 50
	}

	return &AgentLoop{
		Bus:           msgBus,
		Provider:      provider,
		Workspace:     cfg.Workspace,
		Model:         model,
		MaxIterations: maxIter,
		Temperature:   cfg.Temperature,
		MaxTokens:     maxTokens,
		MemoryWindow:  memWin,
		Context:       NewContextBuilder(cfg.Workspace),
		Sessions:      session.NewManager(cfg.Workspace),
		Tools:         tools.NewRegistry(),
		logger:        log.WithPrefix("agent"),
	}
}

// Run consumes the inbound queue until ctx is cancelled. Each message is
// processed to completion, and a reply is always published, before the next
// message is taken.
func (a *AgentLoop) Run(ctx context.Context) {
	a.mu.Lock()
	a.running = true
	a.mu.Unlock()
	a.logger.Info("agent loop started", "model", a.Model)

	for {
		msg, ok := a.Bus.ConsumeInbound(ctx)
		if !ok {
			a.logger.Info("agent loop stopped")
			return
		}
		out := a.ProcessMessage(ctx, msg)
		a.Bus.PublishOutbound(out)
	}
}

// ProcessMessage runs one inbound message through to its reply. The mode is
// read once from the envelope; everything downstream dispatches on it. Never
// returns without a reply: internal failures become error text.
func (a *AgentLoop) ProcessMessage(ctx context.Context, msg bus.InboundMessage) bus.OutboundMessage {
	a.logger.Info("processing message",
		"channel", msg.Channel, "chat_id", msg.ChatID, "mode", msg.Mode().String())

	switch msg.Mode() {
	case bus.ModeJam:
		return a.processJam(ctx, msg)
	default:
		return a.processStandard(ctx, msg)
	}
}

// processJam runs the two-step forced-decision protocol. Both calls go out
// with no tools. The session records only the original question and the
// final short answer, never the intermediate reasoning.
func (a *AgentLoop) processJam(ctx context.Context, msg bus.InboundMessage) bus.OutboundMessage {
	reply := func(content string) bus.OutboundMessage {
		return bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Content: content}
	}

	reasonResp, err := a.Provider.Chat(ctx, providers.ChatRequest{
		Messages:    a.Context.BuildJamReasonMessages(msg.Content),
		Model:       a.Model,
		MaxTokens:   a.MaxTokens,
		Temperature: a.Temperature,
	})
	if err != nil {
		a.logger.Error("jam reasoning call failed", "err", err)
		return reply(fmt.Sprintf("Error: %v", err))
	}
	if reasonResp.FinishReason == "error" {
		// Provider reports transport/HTTP failures as error-text responses.
		// Surface the text directly; it must never become the analysis.
		a.logger.Error("jam reasoning call failed", "reason", reasonResp.ContentOrEmpty())
		return reply(reasonResp.ContentOrEmpty())
	}
	reasoning := reasonResp.ContentOrEmpty()

	answerResp, err := a.Provider.Chat(ctx, providers.ChatRequest{
		Messages:    a.Context.BuildJamAnswerMessages(msg.Content, reasoning),
		Model:       a.Model,
		MaxTokens:   a.MaxTokens,
		Temperature: a.Temperature,
	})
	if err != nil || answerResp.FinishReason == "error" {
		// Degrade to the reasoning text so the user still gets something.
		// Nothing is persisted on this path.
		a.logger.Warn("jam answer call failed, returning reasoning", "err", err)
		return reply(reasoning)
	}
	answer := answerResp.ContentOrEmpty()

	sess := a.Sessions.GetOrCreate(msg.SessionKey())
	sess.AddMessage("user", msg.Content)
	sess.AddMessage("assistant", answer)
	a.Sessions.Save(sess)

	return reply(answer)
}

// processStandard runs the tool-calling agent loop over the session history.
func (a *AgentLoop) processStandard(ctx context.Context, msg bus.InboundMessage) bus.OutboundMessage {
	for _, t := range a.Tools.All() {
		if ct, ok := t.(contextualTool); ok {
			ct.SetContext(msg.Channel, msg.ChatID)
		}
	}

	sess := a.Sessions.GetOrCreate(msg.SessionKey())
	hist := sess.GetHistory(a.MemoryWindow)
	histAny := make([]map[string]any, len(hist))
	for i, h := range hist {
		histAny[i] = map[string]any{"role": h["role"], "content": h["content"]}
	}

	messages := a.Context.BuildMessages(histAny, msg.Content, msg.Channel, msg.ChatID)

	finalContent, toolsUsed, err := a.RunAgentLoop(ctx, messages)
	if err != nil {
		a.logger.Error("agent loop error", "err", err)
		finalContent = fmt.Sprintf("Error: %v", err)
	}
	if finalContent == "" {
		finalContent = "Completed processing."
	}
	if len(toolsUsed) > 0 {
		a.logger.Debug("tools used", "tools", toolsUsed)
	}

	sess.AddMessage("user", msg.Content)
	sess.AddMessage("assistant", finalContent)
	a.Sessions.Save(sess)

	return bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Content: finalContent}
}

// RunAgentLoop executes the tool-calling loop until the model returns a plain
// response or the iteration cap is hit.
func (a *AgentLoop) RunAgentLoop(ctx context.Context, messages []map[string]any) (string, []string, error) {
	iteration := 0
	var toolsUsed []string

	for iteration < a.MaxIterations {
		iteration++

		resp, err := a.Provider.Chat(ctx, providers.ChatRequest{
			Messages:    messages,
			Tools:       a.Tools.Schemas(),
			Model:       a.Model,
			MaxTokens:   a.MaxTokens,
			Temperature: a.Temperature,
		})
		if err != nil {
			return "", toolsUsed, fmt.Errorf("LLM chat: %w", err)
		}

		if !resp.HasToolCalls() {
			return resp.ContentOrEmpty(), toolsUsed, nil
		}

		var toolCallDicts []map[string]any
		for _, tc := range resp.ToolCalls {
			argsJSON, _ := json.Marshal(tc.Arguments)
			toolCallDicts = append(toolCallDicts, map[string]any{
				"id":   tc.ID,
				"type": "function",
				"function": map[string]any{
					"name":      tc.Name,
					"arguments": string(argsJSON),
				},
			})
		}
		messages = a.Context.AddAssistantMessage(messages, resp.ContentOrEmpty(), toolCallDicts)

		for _, tc := range resp.ToolCalls {
			toolsUsed = append(toolsUsed, tc.Name)
			tool := a.Tools.Get(tc.Name)
			var result string
			if tool != nil {
				result, err = tool.Execute(ctx, tc.Arguments)
				if err != nil {
					result = fmt.Sprintf("Error: %v", err)
				}
			} else {
				result = fmt.Sprintf("Error: unknown tool %q", tc.Name)
			}
			messages = a.Context.AddToolResult(messages, tc.ID, tc.Name, result)
		}
	}

	return "Max iterations reached", toolsUsed, nil
}

// ProcessDirect processes a message without going through the bus (CLI and
// cron usage). Metadata follows the same mode convention as channel envelopes.
func (a *AgentLoop) ProcessDirect(ctx context.Context, content, channel, chatID string, metadata map[string]any) (string, error) {
	if channel == "" {
		channel = "cli"
	}
	if chatID == "" {
		chatID = "direct"
	}

	msg := bus.InboundMessage{
		Channel:  channel,
		SenderID: "direct",
		ChatID:   chatID,
		Content:  content,
		Metadata: metadata,
	}
	out := a.ProcessMessage(ctx, msg)
	return out.Content, nil
}

// Stop signals the agent loop to stop.
func (a *AgentLoop) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running = false
	a.logger.Info("agent loop stopping")
}
