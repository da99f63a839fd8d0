package tools

import (
	"context"
	"fmt"

	"github.com/Laeyoung/kanobot/internal/bus"
)

// SendFunc is the callback type for sending outbound messages.
type SendFunc func(msg bus.OutboundMessage) error

// MessageTool sends messages to users on chat channels.
type MessageTool struct {
	SendCallback   SendFunc
	DefaultChannel string
	DefaultChatID  string
}

func (t *MessageTool) Name() string        { return "message" }
func (t *MessageTool) Description() string { return "Send a message to the user." }
func (t *MessageTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{"type": "string", "description": "The message content to send"},
			"channel": map[string]any{"type": "string", "description": "Optional: target channel"},
			"chat_id": map[string]any{"type": "string", "description": "Optional: target chat/user ID"},
		},
		"required": []string{"content"},
	}
}

// SetContext sets the current message context.
func (t *MessageTool) SetContext(channel, chatID string) {
	t.DefaultChannel = channel
	t.DefaultChatID = chatID
}

func (t *MessageTool) Execute(_ context.Context, args map[string]any) (string, error) {
	content, _ := args["content"].(string)
	channel, _ := args["channel"].(string)
	chatID, _ := args["chat_id"].(string)

	if channel == "" {
		channel = t.DefaultChannel
	}
	if chatID == "" {
		chatID = t.DefaultChatID
	}
	if channel == "" || chatID == "" {
		return "Error: No target channel/chat specified", nil
	}
	if t.SendCallback == nil {
		return "Error: Message sending not configured", nil
	}

	msg := bus.OutboundMessage{
		Channel: channel,
		ChatID:  chatID,
		Content: content,
	}
	if err := t.SendCallback(msg); err != nil {
		return fmt.Sprintf("Error sending message: %v", err), nil
	}
	return fmt.Sprintf("Message sent to %s:%s", channel, chatID), nil
}

// Scheduler is the interface for reminder scheduling operations.
type Scheduler interface {
	AddJob(name, message, channel, chatID, schedule string) (string, error)
	ListJobs() (string, error)
	RemoveJob(jobID string) (string, error)
}

// CronTool manages scheduled reminders and recurring tasks.
type CronTool struct {
	Cron    Scheduler
	Channel string
	ChatID  string
}

func (t *CronTool) Name() string { return "cron" }
func (t *CronTool) Description() string {
	return "Schedule reminders and recurring tasks. Actions: add, list, remove."
}
func (t *CronTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{"type": "string", "enum": []string{"add", "list", "remove"}},
			"message": map[string]any{
				"type":        "string",
				"description": "Reminder message (for add)",
			},
			"schedule": map[string]any{
				"type":        "string",
				"description": "Schedule: 'every <duration>' (e.g. 'every 30m') or 'daily HH:MM'",
			},
			"job_id": map[string]any{"type": "string", "description": "Job ID (for remove)"},
		},
		"required": []string{"action"},
	}
}

// SetContext sets the delivery target for scheduled messages.
func (t *CronTool) SetContext(channel, chatID string) {
	t.Channel = channel
	t.ChatID = chatID
}

func (t *CronTool) Execute(_ context.Context, args map[string]any) (string, error) {
	action, _ := args["action"].(string)

	if t.Cron == nil {
		return "Error: Cron service not configured", nil
	}

	switch action {
	case "add":
		message, _ := args["message"].(string)
		if message == "" {
			return "Error: message is required for add", nil
		}
		schedule, _ := args["schedule"].(string)
		if schedule == "" {
			return "Error: schedule is required for add", nil
		}
		if t.Channel == "" || t.ChatID == "" {
			return "Error: no session context (channel/chat_id)", nil
		}

		name := message
		if len(name) > 30 {
			name = name[:30]
		}
		return t.Cron.AddJob(name, message, t.Channel, t.ChatID, schedule)

	case "list":
		return t.Cron.ListJobs()

	case "remove":
		jobID, _ := args["job_id"].(string)
		if jobID == "" {
			return "Error: job_id is required for remove", nil
		}
		return t.Cron.RemoveJob(jobID)

	default:
		return fmt.Sprintf("Unknown action: %s", action), nil
	}
}
