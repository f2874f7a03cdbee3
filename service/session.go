package service

import (
	"context"
	"sync"

	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/pkg/logger"
)

// AnonymousUser is the identity used when no user information is available.
const AnonymousUser = "anonymous"

// SessionContext carries the session identity into every component that
// needs it. It is safe for concurrent use.
type SessionContext struct {
	mu         sync.Mutex
	user       *model.User
	chatUserID string
}

func NewSessionContext(user *model.User) *SessionContext {
	return &SessionContext{user: user}
}

// User returns the authenticated user, or nil.
func (s *SessionContext) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// SetUser replaces the session user. The cached chat id is kept so an ongoing
// chat stays attached to the same log.
func (s *SessionContext) SetUser(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// Identity resolves the user identity: id, then username, then email, then
// AnonymousUser.
func (s *SessionContext) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return identityOf(s.user)
}

func identityOf(u *model.User) string {
	if u == nil {
		return AnonymousUser
	}
	for _, candidate := range []string{u.ID, u.Username, u.Email} {
		if candidate != "" {
			return candidate
		}
	}
	return AnonymousUser
}

// ChatUserID returns the user id sent with chat messages. It is resolved
// once per session and cached.
func (s *SessionContext) ChatUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chatUserID == "" {
		s.chatUserID = identityOf(s.user)
	}
	return s.chatUserID
}

// Context returns ctx annotated for logging with the session identity and the
// given domain tag.
func (s *SessionContext) Context(ctx context.Context, domain string) context.Context {
	return logger.WithValues(ctx, s.Identity(), domain)
}
