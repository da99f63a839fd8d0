// Package session implements conversation session management: per-chat
// append-only history with JSONL persistence and a bounded in-memory cache.
package session

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Laeyoung/kanobot/internal/cache"
	"github.com/Laeyoung/kanobot/internal/utils"
)

// Message is a single conversation turn.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`

	// Internal marker for metadata lines in JSONL.
	Type string `json:"_type,omitempty"`
}

// Session holds one conversation's history, keyed "channel:chat_id".
// History is strictly append-only and never reordered.
type Session struct {
	Key       string    `json:"key"`
	Messages  []Message `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddMessage appends a turn to the session.
func (s *Session) AddMessage(role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	s.UpdatedAt = time.Now()
}

// GetHistory returns the last maxMessages turns in LLM format.
func (s *Session) GetHistory(maxMessages int) []map[string]string {
	start := 0
	if len(s.Messages) > maxMessages {
		start = len(s.Messages) - maxMessages
	}
	result := make([]map[string]string, 0, len(s.Messages)-start)
	for _, m := range s.Messages[start:] {
		result = append(result, map[string]string{
			"role":    m.Role,
			"content": m.Content,
		})
	}
	return result
}

// Manager manages sessions: lazy creation, JSONL persistence, an LRU-bounded
// in-memory cache, and an optional Redis mirror. All access happens from the
// agent dispatch loop's goroutine; the mutex only guards against concurrent
// CLI/cron callers.
type Manager struct {
	sessionsDir string
	maxCached   int
	mirror      *cache.Store

	mu    sync.Mutex
	cache map[string]*Session
	lru   []string // keys, least recent first
}

// NewManager creates a session manager rooted at dataDir/sessions.
func NewManager(dataDir string) *Manager {
	dir := filepath.Join(dataDir, "sessions")
	os.MkdirAll(dir, 0o755)
	return &Manager{
		sessionsDir: dir,
		maxCached:   256,
		cache:       make(map[string]*Session),
	}
}

// WithMirror attaches an optional Redis session mirror. A nil store disables
// mirroring.
func (m *Manager) WithMirror(store *cache.Store) *Manager {
	m.mirror = store
	return m
}

// GetOrCreate returns an existing session or lazily creates one.
func (m *Manager) GetOrCreate(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.cache[key]; ok {
		m.touch(key)
		return s
	}

	s := m.load(key)
	if s == nil {
		s = &Session{
			Key:       key,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
	}
	m.cache[key] = s
	m.touch(key)
	m.evict()
	return s
}

// Save persists a session to disk as JSONL and mirrors it when a mirror is
// attached.
func (m *Manager) Save(s *Session) error {
	path := m.sessionPath(s.Key)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	meta := map[string]any{
		"_type":      "metadata",
		"created_at": s.CreatedAt.Format(time.RFC3339),
		"updated_at": s.UpdatedAt.Format(time.RFC3339),
	}
	metaLine, _ := json.Marshal(meta)
	f.Write(metaLine)
	f.WriteString("\n")

	for _, msg := range s.Messages {
		line, _ := json.Marshal(msg)
		f.Write(line)
		f.WriteString("\n")
	}

	if m.mirror != nil {
		if data, err := json.Marshal(s.Messages); err == nil {
			m.mirror.SetSession(s.Key, data)
		}
	}

	m.mu.Lock()
	m.cache[s.Key] = s
	m.touch(s.Key)
	m.evict()
	m.mu.Unlock()
	return nil
}

// Invalidate removes a session from the in-memory cache.
func (m *Manager) Invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	m.forget(key)
}

// ListSessions returns info about all stored sessions.
func (m *Manager) ListSessions() []map[string]string {
	var result []map[string]string

	entries, err := os.ReadDir(m.sessionsDir)
	if err != nil {
		return result
	}

	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		path := filepath.Join(m.sessionsDir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		if scanner.Scan() {
			var meta map[string]any
			if json.Unmarshal(scanner.Bytes(), &meta) == nil && meta["_type"] == "metadata" {
				key := strings.TrimSuffix(entry.Name(), ".jsonl")
				key = strings.ReplaceAll(key, "_", ":")
				info := map[string]string{"key": key, "path": path}
				if v, ok := meta["created_at"].(string); ok {
					info["created_at"] = v
				}
				if v, ok := meta["updated_at"].(string); ok {
					info["updated_at"] = v
				}
				result = append(result, info)
			}
		}
		f.Close()
	}
	return result
}

// --- internal ---

// touch marks key most-recently-used. Caller holds the lock.
func (m *Manager) touch(key string) {
	m.forget(key)
	m.lru = append(m.lru, key)
}

func (m *Manager) forget(key string) {
	for i, k := range m.lru {
		if k == key {
			m.lru = append(m.lru[:i], m.lru[i+1:]...)
			break
		}
	}
}

// evict drops least-recently-used sessions past the cache bound. Evicted
// sessions reload from disk on next access; nothing is lost because Save
// writes through. Caller holds the lock.
func (m *Manager) evict() {
	for len(m.lru) > m.maxCached {
		oldest := m.lru[0]
		m.lru = m.lru[1:]
		delete(m.cache, oldest)
	}
}

func (m *Manager) sessionPath(key string) string {
	safe := utils.SafeFilename(strings.ReplaceAll(key, ":", "_"))
	return filepath.Join(m.sessionsDir, safe+".jsonl")
}

func (m *Manager) load(key string) *Session {
	f, err := os.Open(m.sessionPath(key))
	if err != nil {
		return m.loadFromMirror(key)
	}
	defer f.Close()

	var msgs []Message
	var createdAt, updatedAt time.Time

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw map[string]any
		if json.Unmarshal([]byte(line), &raw) != nil {
			continue
		}
		if raw["_type"] == "metadata" {
			if v, ok := raw["created_at"].(string); ok {
				createdAt, _ = time.Parse(time.RFC3339, v)
			}
			if v, ok := raw["updated_at"].(string); ok {
				updatedAt, _ = time.Parse(time.RFC3339, v)
			}
			continue
		}

		var msg Message
		if json.Unmarshal([]byte(line), &msg) == nil {
			msgs = append(msgs, msg)
		}
	}

	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	return &Session{
		Key:       key,
		Messages:  msgs,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

func (m *Manager) loadFromMirror(key string) *Session {
	if m.mirror == nil {
		return nil
	}
	data := m.mirror.GetSession(key)
	if data == nil {
		return nil
	}
	var msgs []Message
	if json.Unmarshal(data, &msgs) != nil {
		return nil
	}
	return &Session{
		Key:       key,
		Messages:  msgs,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}
