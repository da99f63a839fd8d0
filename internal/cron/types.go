// Package cron schedules reminder jobs and feeds them back into the message
// bus as inbound messages so the agent announces them on the right channel.
package cron

import (
	"fmt"
	"strings"
	"time"
)

// Job is a scheduled reminder, persisted to the workspace as YAML.
type Job struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Message   string    `yaml:"message"`
	Channel   string    `yaml:"channel"`
	ChatID    string    `yaml:"chat_id"`
	Schedule  string    `yaml:"schedule"`
	Enabled   *bool     `yaml:"enabled,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
	LastRun   time.Time `yaml:"last_run,omitempty"`
}

// IsEnabled returns whether the job is enabled (default true).
func (j Job) IsEnabled() bool {
	if j.Enabled == nil {
		return true
	}
	return *j.Enabled
}

// scheduleKind is the parsed form of a Job.Schedule string.
type scheduleKind int

const (
	scheduleEvery scheduleKind = iota
	scheduleDaily
)

type schedule struct {
	kind     scheduleKind
	interval time.Duration // scheduleEvery
	at       string        // scheduleDaily, "15:04"
}

// parseSchedule accepts "every <duration>" (Go duration syntax, e.g.
// "every 30m") and "daily HH:MM" (24-hour clock).
func parseSchedule(s string) (schedule, error) {
	s = strings.TrimSpace(s)

	if rest, ok := strings.CutPrefix(s, "every "); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil {
			return schedule{}, fmt.Errorf("invalid interval %q: %w", rest, err)
		}
		if d < time.Minute {
			return schedule{}, fmt.Errorf("interval %q below one minute", rest)
		}
		return schedule{kind: scheduleEvery, interval: d}, nil
	}

	if rest, ok := strings.CutPrefix(s, "daily "); ok {
		at := strings.TrimSpace(rest)
		if _, err := time.Parse("15:04", at); err != nil {
			return schedule{}, fmt.Errorf("invalid time %q: use HH:MM", at)
		}
		return schedule{kind: scheduleDaily, at: at}, nil
	}

	return schedule{}, fmt.Errorf("unrecognized schedule %q: use 'every <duration>' or 'daily HH:MM'", s)
}

// due reports whether a job with this schedule should fire at now.
func (s schedule) due(j Job, now time.Time) bool {
	switch s.kind {
	case scheduleEvery:
		last := j.LastRun
		if last.IsZero() {
			last = j.CreatedAt
		}
		return now.Sub(last) >= s.interval
	case scheduleDaily:
		if now.Format("15:04") != s.at {
			return false
		}
		y1, m1, d1 := j.LastRun.Date()
		y2, m2, d2 := now.Date()
		return !(y1 == y2 && m1 == m2 && d1 == d2)
	}
	return false
}
