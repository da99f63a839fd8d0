package cron

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Laeyoung/kanobot/internal/bus"
)

// Service owns the job store and the minute ticker. Fired jobs are published
// to the bus as inbound messages so they flow through the normal agent path
// and the reply lands on the job's channel.
type Service struct {
	Bus *bus.MessageBus

	mu     sync.Mutex
	jobs   []Job
	path   string
	logger *log.Logger
}

// NewService creates a cron service storing jobs under workspace/cron.
func NewService(msgBus *bus.MessageBus, workspace string) *Service {
	s := &Service{
		Bus:    msgBus,
		path:   filepath.Join(workspace, "cron", "jobs.yaml"),
		logger: log.WithPrefix("cron"),
	}
	s.load()
	return s
}

func (s *Service) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var jobs []Job
	if err := yaml.Unmarshal(data, &jobs); err != nil {
		s.logger.Warn("failed to parse job store", "path", s.path, "err", err)
		return
	}
	s.jobs = jobs
}

func (s *Service) save() error {
	data, err := yaml.Marshal(s.jobs)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// AddJob validates the schedule, stores the job, and returns a confirmation.
func (s *Service) AddJob(name, message, channel, chatID, scheduleStr string) (string, error) {
	if _, err := parseSchedule(scheduleStr); err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	job := Job{
		ID:        uuid.NewString()[:8],
		Name:      name,
		Message:   message,
		Channel:   channel,
		ChatID:    chatID,
		Schedule:  scheduleStr,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("save jobs: %w", err)
	}

	s.logger.Info("job added", "id", job.ID, "schedule", job.Schedule)
	return fmt.Sprintf("Scheduled %q (id %s): %s", name, job.ID, scheduleStr), nil
}

// ListJobs returns a human-readable listing of all jobs.
func (s *Service) ListJobs() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.jobs) == 0 {
		return "No scheduled jobs.", nil
	}
	var lines []string
	for _, j := range s.jobs {
		state := ""
		if !j.IsEnabled() {
			state = " (disabled)"
		}
		lines = append(lines, fmt.Sprintf("- [%s] %s: %s%s", j.ID, j.Name, j.Schedule, state))
	}
	return strings.Join(lines, "\n"), nil
}

// RemoveJob deletes a job by ID.
func (s *Service) RemoveJob(jobID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, j := range s.jobs {
		if j.ID == jobID {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			if err := s.save(); err != nil {
				return "", fmt.Errorf("save jobs: %w", err)
			}
			s.logger.Info("job removed", "id", jobID)
			return fmt.Sprintf("Removed job %s", jobID), nil
		}
	}
	return fmt.Sprintf("Error: job %s not found", jobID), nil
}

// Jobs returns a copy of the current job list.
func (s *Service) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Run ticks once a minute and fires due jobs until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	s.logger.Info("cron service started", "jobs", len(s.Jobs()))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cron service stopped")
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// Tick fires every job due at now. Exposed for tests.
func (s *Service) Tick(now time.Time) {
	s.mu.Lock()
	var fired []Job
	for i := range s.jobs {
		j := s.jobs[i]
		if !j.IsEnabled() {
			continue
		}
		sched, err := parseSchedule(j.Schedule)
		if err != nil {
			continue
		}
		if sched.due(j, now) {
			s.jobs[i].LastRun = now
			fired = append(fired, s.jobs[i])
		}
	}
	if len(fired) > 0 {
		if err := s.save(); err != nil {
			s.logger.Error("failed to persist job state", "err", err)
		}
	}
	s.mu.Unlock()

	for _, j := range fired {
		s.logger.Info("firing job", "id", j.ID, "name", j.Name)
		s.Bus.PublishInbound(bus.InboundMessage{
			Channel:   j.Channel,
			SenderID:  "cron",
			ChatID:    j.ChatID,
			Content:   fmt.Sprintf("[Scheduled reminder] %s", j.Message),
			Timestamp: now,
			Metadata:  map[string]any{"source": "cron", "job_id": j.ID},
		})
	}
}
