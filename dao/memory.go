package dao

import (
	"context"
	"fmt"
	"sync"
	"time"

	"voice-aftercare/model"
)

type memoryEntry struct {
	state   *model.ConversationState
	expires time.Time
}

// MemoryStore in-process SessionStore for single-instance runs and tests
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	if err := validateID(sessionID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[sessionID]
	if !ok || m.expired(e) {
		delete(m.entries, sessionID)
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return e.state.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, st *model.ConversationState) error {
	if err := validateSession(st); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[st.SessionID]; ok && !m.expired(e) && e.state.Version != st.Version {
		return fmt.Errorf("%w: %s stored v%d, saving v%d", ErrSessionConflict, st.SessionID, e.state.Version, st.Version)
	}
	st.Version++
	m.entries[st.SessionID] = memoryEntry{state: st.Clone(), expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	if err := validateID(sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
	return nil
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return m.ttl > 0 && m.now().After(e.expires)
}
