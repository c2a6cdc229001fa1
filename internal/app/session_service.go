package app

import (
	"context"
	"errors"
	"log"
	"time"

	"classlive-session-service/internal/domain"
)

// ErrCodeTaken is returned by registries when a generated code is already
// claimed. It is retried internally and never surfaced to callers.
var ErrCodeTaken = errors.New("session code already in use")

// codeAttempts bounds collision retries during session creation.
const codeAttempts = 5

// SessionRegistry abstracts how live sessions are indexed by code
// (in-memory, Redis, etc). Put must claim the code atomically so two
// concurrent creations can never share a code.
type SessionRegistry interface {
	Put(ctx context.Context, session *Session) error
	Get(code string) (*Session, bool)
	Remove(ctx context.Context, code string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultStore persists final standings for review after the session is gone.
type ResultStore interface {
	SaveResult(ctx context.Context, result domain.SessionResult) error
}

// ServiceConfig tunes session behavior service-wide.
type ServiceConfig struct {
	Session SessionConfig
	// Retention keeps ended sessions queryable before removal.
	Retention time.Duration
}

// DefaultRetention keeps ended sessions around for late result queries.
const DefaultRetention = 5 * time.Minute

// SessionService contains the live session use cases: hosts create and drive
// sessions, participants join and answer.
type SessionService struct {
	registry SessionRegistry
	quizzes  QuizRepository
	results  ResultStore
	cfg      ServiceConfig
}

func NewSessionService(registry SessionRegistry, quizzes QuizRepository, results ResultStore, cfg ServiceConfig) *SessionService {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	return &SessionService{registry: registry, quizzes: quizzes, results: results, cfg: cfg}
}

// Create allocates a unique join code and stores a new lobby-state session.
// Code collisions are retried transparently; callers only ever see a code or
// a quiz loading error.
func (s *SessionService) Create(ctx context.Context, quizID, hostID string) (domain.SessionSummary, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SessionSummary{}, err
	}
	if len(quiz.Questions) == 0 {
		return domain.SessionSummary{}, domain.ErrQuizEmpty
	}

	var session *Session
	for attempt := 0; attempt < codeAttempts; attempt++ {
		candidate := NewSession(GenerateCode(), hostID, quiz, s.cfg.Session)
		if err = s.registry.Put(ctx, candidate); err == nil {
			session = candidate
			break
		}
		if !errors.Is(err, ErrCodeTaken) {
			return domain.SessionSummary{}, err
		}
	}
	if session == nil {
		return domain.SessionSummary{}, err
	}

	session.OnEnd(func(result domain.SessionResult) {
		s.finishSession(result)
	})
	return session.Summary(), nil
}

// Join registers a participant by join code and display name.
func (s *SessionService) Join(ctx context.Context, code, displayName string) (string, error) {
	session, ok := s.registry.Get(NormalizeCode(code))
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return session.Join(displayName)
}

// Start drives Lobby -> QuestionActive(0).
func (s *SessionService) Start(ctx context.Context, code, hostID string) error {
	session, ok := s.registry.Get(NormalizeCode(code))
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Start(hostID)
}

// Next advances past the current reveal.
func (s *SessionService) Next(ctx context.Context, code, hostID string) error {
	session, ok := s.registry.Get(NormalizeCode(code))
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Next(hostID)
}

// End force-finishes a session. Removal happens after the retention window
// so late result queries still resolve.
func (s *SessionService) End(ctx context.Context, code, hostID string) error {
	session, ok := s.registry.Get(NormalizeCode(code))
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.End(hostID)
}

// SubmitAnswer records one answer for the active question.
func (s *SessionService) SubmitAnswer(ctx context.Context, code, participantID string, questionIndex, optionIndex int) (domain.AnswerResult, error) {
	session, ok := s.registry.Get(NormalizeCode(code))
	if !ok {
		return domain.AnswerResult{}, domain.ErrSessionNotFound
	}
	return session.SubmitAnswer(participantID, questionIndex, optionIndex)
}

// Subscribe returns a channel of session events for one client. The caller
// must invoke the returned cancel function to avoid leaks.
func (s *SessionService) Subscribe(_ context.Context, code string) (<-chan domain.Event, func(), error) {
	session, ok := s.registry.Get(NormalizeCode(code))
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Snapshot serves resync: current state without the unrevealed answer, plus
// the requesting participant's own history.
func (s *SessionService) Snapshot(_ context.Context, code, participantID string) (domain.Snapshot, error) {
	session, ok := s.registry.Get(NormalizeCode(code))
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(participantID), nil
}

// finishSession persists final standings (best effort) and schedules the
// registry entry for removal once the retention window passes.
func (s *SessionService) finishSession(result domain.SessionResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s.results != nil {
		if err := s.results.SaveResult(ctx, result); err != nil {
			log.Printf("session %s: save result failed: %v", result.Code, err)
		}
	}
	time.AfterFunc(s.cfg.Retention, func() {
		s.registry.Remove(context.Background(), result.Code)
	})
}
