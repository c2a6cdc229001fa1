package memory

import (
	"context"
	"sync"

	"classlive-session-service/internal/app"
)

// SessionRegistry is an in-memory implementation of app.SessionRegistry.
// The mutex makes code claims atomic, so concurrent creations can never
// allocate the same code.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*app.Session),
	}
}

func (r *SessionRegistry) Put(_ context.Context, session *app.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.sessions[session.Code()]; taken {
		return app.ErrCodeTaken
	}
	r.sessions[session.Code()] = session
	return nil
}

func (r *SessionRegistry) Get(code string) (*app.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[code]
	return session, ok
}

func (r *SessionRegistry) Remove(_ context.Context, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, code)
}
