package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/campusconnect/event-service/internal/models"
)

type SessionState string

const (
	SessionAnonymous      SessionState = "anonymous"
	SessionAuthenticating SessionState = "authenticating"
	SessionAuthenticated  SessionState = "authenticated"
)

// Session tracks one client's sign-in state.
//
//	anonymous -> authenticating -> authenticated(role)
//	authenticating -> anonymous (failure)
//	authenticated -> authenticated (role re-resolved)
//	authenticated -> anonymous (sign-out)
type Session struct {
	mu        sync.RWMutex
	state     SessionState
	principal models.Principal
	expiresAt time.Time
}

func NewSession() *Session {
	return &Session{state: SessionAnonymous}
}

// NewAuthenticatedSession wraps a principal already verified from a bearer token.
func NewAuthenticatedSession(p models.Principal, expiresAt time.Time) *Session {
	if !p.IsAuthenticated() {
		return NewSession()
	}
	return &Session{state: SessionAuthenticated, principal: p, expiresAt: expiresAt}
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Principal is Anonymous unless the session is authenticated.
func (s *Session) Principal() models.Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != SessionAuthenticated {
		return models.Anonymous
	}
	return s.principal
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionAuthenticating {
		return fmt.Errorf("sign-in already in progress")
	}
	s.state = SessionAuthenticating
	s.principal = models.Anonymous
	s.expiresAt = time.Time{}
	return nil
}

func (s *Session) authenticate(p models.Principal, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionAuthenticated
	s.principal = p
	s.expiresAt = expiresAt
}

// setRole applies a re-resolved role; it is a no-op unless the session is authenticated.
func (s *Session) setRole(userID string, role models.UserRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionAuthenticated || s.principal.ID != userID {
		return
	}
	s.principal.Role = role
}

func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionAnonymous
	s.principal = models.Anonymous
	s.expiresAt = time.Time{}
}

// ===== SESSION CHANGES =====

type SessionChangeKind string

const (
	SessionSignedIn  SessionChangeKind = "signed_in"
	SessionRefreshed SessionChangeKind = "refreshed"
	SessionSignedOut SessionChangeKind = "signed_out"
)

// SessionChange is one notification from the identity provider about a user's session.
type SessionChange struct {
	Kind      SessionChangeKind
	UserID    string
	Email     string
	ExpiresAt time.Time
}
