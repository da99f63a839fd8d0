package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_AddMessageAppendOnly(t *testing.T) {
	s := &Session{Key: "cli:direct"}
	s.AddMessage("user", "hello")
	s.AddMessage("assistant", "hi there")

	require.Len(t, s.Messages, 2)
	assert.Equal(t, "user", s.Messages[0].Role)
	assert.Equal(t, "hello", s.Messages[0].Content)
	assert.Equal(t, "assistant", s.Messages[1].Role)
}

func TestSession_GetHistoryWindow(t *testing.T) {
	s := &Session{Key: "cli:direct"}
	for i := 0; i < 10; i++ {
		s.AddMessage("user", "msg")
	}
	hist := s.GetHistory(3)
	assert.Len(t, hist, 3)

	hist = s.GetHistory(50)
	assert.Len(t, hist, 10)
}

func TestSession_GetHistoryPreservesOrder(t *testing.T) {
	s := &Session{Key: "cli:direct"}
	s.AddMessage("user", "first")
	s.AddMessage("assistant", "second")
	s.AddMessage("user", "third")

	hist := s.GetHistory(2)
	require.Len(t, hist, 2)
	assert.Equal(t, "second", hist[0]["content"])
	assert.Equal(t, "third", hist[1]["content"])
}

func TestManager_GetOrCreateLazy(t *testing.T) {
	m := NewManager(t.TempDir())
	s := m.GetOrCreate("telegram:123")
	require.NotNil(t, s)
	assert.Equal(t, "telegram:123", s.Key)
	assert.Empty(t, s.Messages)

	// Same key returns the same instance.
	again := m.GetOrCreate("telegram:123")
	assert.Same(t, s, again)
}

func TestManager_SaveAndReload(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	s := m.GetOrCreate("slack:D1")
	s.AddMessage("user", "question")
	s.AddMessage("assistant", "answer")
	require.NoError(t, m.Save(s))

	// Fresh manager reloads from JSONL.
	m2 := NewManager(dir)
	s2 := m2.GetOrCreate("slack:D1")
	require.Len(t, s2.Messages, 2)
	assert.Equal(t, "question", s2.Messages[0].Content)
	assert.Equal(t, "answer", s2.Messages[1].Content)
}

func TestManager_LRUEvictionReloadsFromDisk(t *testing.T) {
	m := NewManager(t.TempDir())
	m.maxCached = 2

	a := m.GetOrCreate("c:a")
	a.AddMessage("user", "from a")
	require.NoError(t, m.Save(a))

	m.GetOrCreate("c:b")
	m.GetOrCreate("c:c") // evicts c:a

	assert.NotContains(t, m.cache, "c:a")

	reloaded := m.GetOrCreate("c:a")
	require.Len(t, reloaded.Messages, 1)
	assert.Equal(t, "from a", reloaded.Messages[0].Content)
}

func TestManager_Invalidate(t *testing.T) {
	m := NewManager(t.TempDir())
	s := m.GetOrCreate("cli:direct")
	s.AddMessage("user", "hi")

	m.Invalidate("cli:direct")
	fresh := m.GetOrCreate("cli:direct")
	assert.NotSame(t, s, fresh)
}

func TestManager_ListSessions(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	s := m.GetOrCreate("telegram:42")
	s.AddMessage("user", "hey")
	require.NoError(t, m.Save(s))

	list := m.ListSessions()
	require.Len(t, list, 1)
	assert.Equal(t, "telegram:42", list[0]["key"])
}
