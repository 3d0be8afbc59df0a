package memory

import (
	"context"
	"sync"

	"quizrank-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// It stores copies so callers never share a session value.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.QuizSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*domain.QuizSession),
	}
}

func (s *SessionStore) Load(_ context.Context, userID string) (*domain.QuizSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	if !ok {
		return nil, false, nil
	}
	return session.Clone(), true, nil
}

func (s *SessionStore) Save(_ context.Context, session *domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = session.Clone()
	return nil
}

func (s *SessionStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}
