package redis

import (
	"context"
	"sync"
	"time"

	"classlive-session-service/internal/app"

	"github.com/redis/go-redis/v9"
)

// SessionRegistry is a Redis-aware implementation of app.SessionRegistry.
// Notes:
//   - Sessions themselves stay in a local map so the in-process broadcast
//     path keeps working; Redis holds the code reservations.
//   - SETNX on the code key makes the claim atomic across instances, so two
//     nodes can never hand out the same join code.
//   - For true distribution you'd pair this with a pub/sub projector that
//     fans events out across nodes.
type SessionRegistry struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	local  map[string]*app.Session
}

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		client: client,
		ttl:    ttl,
		local:  make(map[string]*app.Session),
	}
}

func (r *SessionRegistry) Put(ctx context.Context, session *app.Session) error {
	code := session.Code()

	claimed, err := r.client.SetNX(ctx, r.key(code), "1", r.ttl).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return app.ErrCodeTaken
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.local[code]; taken {
		return app.ErrCodeTaken
	}
	r.local[code] = session
	return nil
}

func (r *SessionRegistry) Get(code string) (*app.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.local[code]
	return session, ok
}

func (r *SessionRegistry) Remove(ctx context.Context, code string) {
	r.mu.Lock()
	delete(r.local, code)
	r.mu.Unlock()
	_ = r.client.Del(ctx, r.key(code)).Err()
}

func (r *SessionRegistry) key(code string) string {
	return "session:code:" + code
}
