package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laeyoung/kanobot/internal/bus"
)

func TestMessageTool_Contract(t *testing.T) {
	RunToolContractTests(t, &MessageTool{})
}

func TestCronTool_Contract(t *testing.T) {
	RunToolContractTests(t, &CronTool{})
}

func TestMessageTool_SendsViaCallback(t *testing.T) {
	var sent bus.OutboundMessage
	tool := &MessageTool{
		SendCallback: func(msg bus.OutboundMessage) error {
			sent = msg
			return nil
		},
	}
	tool.SetContext("telegram", "12345")

	result, err := tool.Execute(context.Background(), map[string]any{"content": "hello"})
	require.NoError(t, err)
	assert.Contains(t, result, "Message sent to telegram:12345")
	assert.Equal(t, "telegram", sent.Channel)
	assert.Equal(t, "12345", sent.ChatID)
	assert.Equal(t, "hello", sent.Content)
}

func TestMessageTool_ExplicitTargetOverridesContext(t *testing.T) {
	var sent bus.OutboundMessage
	tool := &MessageTool{
		SendCallback: func(msg bus.OutboundMessage) error {
			sent = msg
			return nil
		},
		DefaultChannel: "telegram",
		DefaultChatID:  "1",
	}

	_, err := tool.Execute(context.Background(), map[string]any{
		"content": "hi", "channel": "discord", "chat_id": "99",
	})
	require.NoError(t, err)
	assert.Equal(t, "discord", sent.Channel)
	assert.Equal(t, "99", sent.ChatID)
}

func TestMessageTool_NoTarget(t *testing.T) {
	tool := &MessageTool{SendCallback: func(bus.OutboundMessage) error { return nil }}
	result, err := tool.Execute(context.Background(), map[string]any{"content": "hi"})
	assert.NoError(t, err)
	assert.Contains(t, result, "No target channel/chat")
}

func TestMessageTool_CallbackError(t *testing.T) {
	tool := &MessageTool{
		SendCallback:   func(bus.OutboundMessage) error { return errors.New("send failed") },
		DefaultChannel: "telegram",
		DefaultChatID:  "1",
	}
	result, err := tool.Execute(context.Background(), map[string]any{"content": "hi"})
	assert.NoError(t, err)
	assert.Contains(t, result, "send failed")
}

type fakeScheduler struct {
	added   []string
	removed []string
}

func (f *fakeScheduler) AddJob(name, message, channel, chatID, schedule string) (string, error) {
	f.added = append(f.added, fmt.Sprintf("%s|%s|%s|%s|%s", name, message, channel, chatID, schedule))
	return "Scheduled: " + name, nil
}

func (f *fakeScheduler) ListJobs() (string, error) { return "2 jobs", nil }

func (f *fakeScheduler) RemoveJob(jobID string) (string, error) {
	f.removed = append(f.removed, jobID)
	return "Removed " + jobID, nil
}

func TestCronTool_Add(t *testing.T) {
	sched := &fakeScheduler{}
	tool := &CronTool{Cron: sched}
	tool.SetContext("telegram", "42")

	result, err := tool.Execute(context.Background(), map[string]any{
		"action": "add", "message": "drink water", "schedule": "every 30m",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "Scheduled")
	require.Len(t, sched.added, 1)
	assert.Equal(t, "drink water|drink water|telegram|42|every 30m", sched.added[0])
}

func TestCronTool_AddRequiresSchedule(t *testing.T) {
	tool := &CronTool{Cron: &fakeScheduler{}, Channel: "telegram", ChatID: "1"}
	result, err := tool.Execute(context.Background(), map[string]any{
		"action": "add", "message": "hi",
	})
	assert.NoError(t, err)
	assert.Contains(t, result, "schedule is required")
}

func TestCronTool_AddRequiresContext(t *testing.T) {
	tool := &CronTool{Cron: &fakeScheduler{}}
	result, err := tool.Execute(context.Background(), map[string]any{
		"action": "add", "message": "hi", "schedule": "every 1h",
	})
	assert.NoError(t, err)
	assert.Contains(t, result, "no session context")
}

func TestCronTool_ListAndRemove(t *testing.T) {
	sched := &fakeScheduler{}
	tool := &CronTool{Cron: sched}

	result, err := tool.Execute(context.Background(), map[string]any{"action": "list"})
	require.NoError(t, err)
	assert.Equal(t, "2 jobs", result)

	result, err = tool.Execute(context.Background(), map[string]any{"action": "remove", "job_id": "abc"})
	require.NoError(t, err)
	assert.Contains(t, result, "Removed abc")
	assert.Equal(t, []string{"abc"}, sched.removed)
}

func TestCronTool_UnknownAction(t *testing.T) {
	tool := &CronTool{Cron: &fakeScheduler{}}
	result, err := tool.Execute(context.Background(), map[string]any{"action": "pause"})
	assert.NoError(t, err)
	assert.Contains(t, result, "Unknown action: pause")
}
