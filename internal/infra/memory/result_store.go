package memory

import (
	"context"
	"sync"

	"classlive-session-service/internal/domain"
)

// ResultStore keeps final standings in memory, for single-node runs and
// tests.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.SessionResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.SessionResult)}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.SessionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.Code] = result
	return nil
}

// GetResult returns the stored result for a code, if any.
func (s *ResultStore) GetResult(code string) (domain.SessionResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[code]
	return result, ok
}
