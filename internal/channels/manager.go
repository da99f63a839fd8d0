package channels

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Laeyoung/kanobot/internal/bus"
)

// Manager owns all channel instances: it wires each adapter's Send as the
// bus outbound handler for its name, starts the listeners concurrently, and
// tears everything down on shutdown. A failing channel never takes down the
// others.
type Manager struct {
	Bus      *bus.MessageBus
	channels map[string]Channel
	mu       sync.RWMutex
	logger   *log.Logger
}

// NewManager creates a channel manager.
func NewManager(msgBus *bus.MessageBus) *Manager {
	return &Manager{
		Bus:      msgBus,
		channels: make(map[string]Channel),
		logger:   log.WithPrefix("channels"),
	}
}

// Register adds a channel to the manager.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

// Get returns a channel by name, or nil.
func (m *Manager) Get(name string) Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channels[name]
}

// EnabledChannels returns the registered channel names.
func (m *Manager) EnabledChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return names
}

// StartAll registers outbound handlers and starts all channels concurrently.
// Blocks until every channel's Start has returned.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	chans := make(map[string]Channel, len(m.channels))
	for name, ch := range m.channels {
		chans[name] = ch
	}
	m.mu.RUnlock()

	if len(chans) == 0 {
		m.logger.Warn("no channels enabled")
		return nil
	}

	for name, ch := range chans {
		m.Bus.RegisterOutbound(name, ch.Send)
	}

	var wg sync.WaitGroup
	for name, ch := range chans {
		wg.Add(1)
		go func(n string, c Channel) {
			defer wg.Done()
			m.logger.Info("starting channel", "channel", n)
			if err := c.Start(ctx); err != nil {
				// Configuration or transport error: this adapter does not
				// run, the rest of the process is unaffected.
				m.logger.Error("channel failed", "channel", n, "err", err)
			}
		}(name, ch)
	}
	wg.Wait()
	return nil
}

// StopAll stops all channels and unregisters their outbound handlers so the
// bus is not left pointing at dead connections.
func (m *Manager) StopAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, ch := range m.channels {
		if err := ch.Stop(); err != nil {
			m.logger.Error("error stopping channel", "channel", name, "err", err)
		}
		m.Bus.UnregisterOutbound(name)
	}
}

// GetStatus returns the running state of all channels.
func (m *Manager) GetStatus() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := make(map[string]bool, len(m.channels))
	for name, ch := range m.channels {
		status[name] = ch.IsRunning()
	}
	return status
}
