// Package memory is an in-memory session store, the default backend for
// single-instance deployments and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voltgrid/supportbot/internal/domain"
	"github.com/voltgrid/supportbot/internal/session"
)

type entry struct {
	session domain.Session
	history []session.Message
}

// Store keeps sessions keyed by user id. One active session per user;
// expired sessions are replaced on the next GetOrCreate.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	timeout time.Duration
	now     func() time.Time
}

var _ domain.SessionStore = (*Store)(nil)

// New creates a store. A non-positive timeout falls back to the default.
func New(timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = session.DefaultTimeout
	}
	return &Store{
		entries: make(map[string]*entry),
		timeout: timeout,
		now:     time.Now,
	}
}

func (s *Store) GetOrCreate(ctx context.Context, userID, platform string) (domain.Session, error) {
	if userID == "" {
		return domain.Session{}, fmt.Errorf("user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[userID]; ok && now.Sub(e.session.UpdatedAt) < s.timeout {
		return e.session, nil
	}

	sess := domain.Session{
		SessionID:   newSessionID(),
		UserID:      userID,
		CurrentNode: "start",
		Platform:    platform,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.entries[userID] = &entry{session: sess}
	return sess, nil
}

func (s *Store) Update(ctx context.Context, userID, sessionID, currentNode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok || e.session.SessionID != sessionID {
		return fmt.Errorf("session %s not found for user %s", sessionID, userID)
	}
	e.session.CurrentNode = currentNode
	e.session.UpdatedAt = s.now()
	return nil
}

func (s *Store) AppendHistory(ctx context.Context, userID, sessionID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok || e.session.SessionID != sessionID {
		return fmt.Errorf("session %s not found for user %s", sessionID, userID)
	}
	e.history = append(e.history, session.Message{
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	})
	e.session.UpdatedAt = s.now()
	return nil
}

// History returns a copy of the session's message history in append order.
func (s *Store) History(ctx context.Context, userID, sessionID string) ([]session.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[userID]
	if !ok || e.session.SessionID != sessionID {
		return nil, fmt.Errorf("session %s not found for user %s", sessionID, userID)
	}
	out := make([]session.Message, len(e.history))
	copy(out, e.history)
	return out, nil
}

// Len returns the number of tracked sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) Close() error { return nil }

func newSessionID() string {
	return "sess_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
