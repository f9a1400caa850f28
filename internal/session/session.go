// Package session holds the signed-in identity: an opaque bearer token and a cached user
// profile, persisted through a key/value backend so it survives restarts.
package session

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/tgienger/todochat/internal/models"
)

// Storage keys
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Backend is the persistent key/value storage behind a Session.
// GetSetting returns "" for a missing key.
type Backend interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// Session is created on login/signup and destroyed on logout or on a 401.
// A Session without a backend is detached: every operation is a no-op.
type Session struct {
	mu      sync.Mutex
	backend Backend
	log     *zap.Logger
}

func New(backend Backend, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{backend: backend, log: logger}
}

// Detached returns a session with no storage behind it
func Detached() *Session {
	return New(nil, nil)
}

func (s *Session) SetToken(token string) {
	s.set(KeyToken, token)
}

// Token returns the stored token, if any
func (s *Session) Token() (string, bool) {
	v := s.get(KeyToken)
	return v, v != ""
}

func (s *Session) SetUser(user models.User) {
	data, err := json.Marshal(user)
	if err != nil {
		s.log.Warn("session: encode user", zap.Error(err))
		return
	}
	s.set(KeyUser, string(data))
}

// User returns the cached profile. A corrupt entry reads as absent.
func (s *Session) User() (models.User, bool) {
	v := s.get(KeyUser)
	if v == "" {
		return models.User{}, false
	}
	var user models.User
	if err := json.Unmarshal([]byte(v), &user); err != nil {
		s.log.Warn("session: decode user", zap.Error(err))
		return models.User{}, false
	}
	return user, true
}

// IsAuthenticated is true iff a token is present
func (s *Session) IsAuthenticated() bool {
	_, ok := s.Token()
	return ok
}

// Store persists a successful login or signup
func (s *Session) Store(token string, user models.User) {
	s.SetToken(token)
	s.SetUser(user)
}

// Clear removes both the token and the user
func (s *Session) Clear() {
	if s.backend == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range []string{KeyToken, KeyUser} {
		if err := s.backend.DeleteSetting(key); err != nil {
			s.log.Warn("session: delete", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *Session) get(key string) string {
	if s.backend == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.backend.GetSetting(key)
	if err != nil {
		s.log.Warn("session: read", zap.String("key", key), zap.Error(err))
		return ""
	}
	return v
}

func (s *Session) set(key, value string) {
	if s.backend == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.SetSetting(key, value); err != nil {
		s.log.Warn("session: write", zap.String("key", key), zap.Error(err))
	}
}
