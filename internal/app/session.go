package app

import (
	"sort"
	"strings"
	"sync"
	"time"

	"classlive-session-service/internal/domain"

	"github.com/google/uuid"
)

// SessionConfig tunes per-session behavior.
type SessionConfig struct {
	// BasePoints is the full-speed award for a correct answer.
	BasePoints int
	// RevealDuration auto-advances from reveal after this long; zero means
	// the host must drive every transition.
	RevealDuration time.Duration
	// AllowLateJoin admits participants after the quiz has started.
	AllowLateJoin bool
}

// Session is one live quiz run. All state transitions, joins, and answer
// submissions are serialized through a single mutex, so concurrent
// submissions and host actions can never race; different sessions are fully
// independent.
type Session struct {
	code      string
	hostID    string
	quiz      domain.Quiz
	cfg       SessionConfig
	createdAt time.Time
	now       func() time.Time

	mu                sync.Mutex
	state             domain.SessionState
	questionIndex     int
	questionStartedAt time.Time
	participants      map[string]*domain.Participant
	namesLower        map[string]string
	answered          map[string]bool
	subscribers       map[chan domain.Event]struct{}
	timer             *time.Timer
	timerGen          int
	onEnd             func(domain.SessionResult)
}

// NewSession builds a session in the lobby state.
func NewSession(code, hostID string, quiz domain.Quiz, cfg SessionConfig) *Session {
	return NewSessionWithClock(code, hostID, quiz, cfg, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(code, hostID string, quiz domain.Quiz, cfg SessionConfig, now func() time.Time) *Session {
	if cfg.BasePoints <= 0 {
		cfg.BasePoints = DefaultBasePoints
	}
	return &Session{
		code:          code,
		hostID:        hostID,
		quiz:          quiz,
		cfg:           cfg,
		createdAt:     now(),
		now:           now,
		state:         domain.StateLobby,
		questionIndex: -1,
		participants:  make(map[string]*domain.Participant),
		namesLower:    make(map[string]string),
		answered:      make(map[string]bool),
		subscribers:   make(map[chan domain.Event]struct{}),
	}
}

// Code returns the session's join code.
func (s *Session) Code() string { return s.code }

// HostID returns the host identity the session was created with.
func (s *Session) HostID() string { return s.hostID }

// OnEnd registers a callback invoked once when the session reaches the
// terminal state, with the final standings. Runs on its own goroutine so the
// session lock is never held across it.
func (s *Session) OnEnd(fn func(domain.SessionResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnd = fn
}

// Summary describes the session for the create endpoint.
func (s *Session) Summary() domain.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionSummary{
		Code:           s.code,
		QuizID:         s.quiz.ID,
		QuizTitle:      s.quiz.Title,
		State:          s.state,
		TotalQuestions: len(s.quiz.Questions),
		CreatedAt:      s.createdAt,
	}
}

// Join adds a participant. Allowed in the lobby, and mid-quiz when late join
// is enabled; never after the session ended. Display names are unique per
// session, case-insensitively.
func (s *Session) Join(displayName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateEnded:
		return "", domain.ErrSessionNotJoinable
	case domain.StateLobby:
	default:
		if !s.cfg.AllowLateJoin {
			return "", domain.ErrSessionNotJoinable
		}
	}

	lower := strings.ToLower(strings.TrimSpace(displayName))
	if lower == "" {
		return "", domain.ErrDuplicateName
	}
	if _, taken := s.namesLower[lower]; taken {
		return "", domain.ErrDuplicateName
	}

	id := uuid.NewString()
	s.participants[id] = &domain.Participant{
		ID:          id,
		DisplayName: strings.TrimSpace(displayName),
		JoinedAt:    s.now(),
	}
	s.namesLower[lower] = id

	s.publishLocked(domain.Event{Type: domain.EventLobby, Payload: s.lobbyUpdateLocked()})
	return id, nil
}

// Start moves Lobby -> QuestionActive(0). Host only.
func (s *Session) Start(hostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hostID != s.hostID {
		return domain.ErrNotHost
	}
	if s.state != domain.StateLobby {
		return domain.ErrInvalidTransition
	}
	s.beginQuestionLocked(0)
	return nil
}

// Next moves QuestionReveal(idx) -> QuestionActive(idx+1), or to Ended after
// the last question. Host only.
func (s *Session) Next(hostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hostID != s.hostID {
		return domain.ErrNotHost
	}
	if s.state != domain.StateQuestionReveal {
		return domain.ErrInvalidTransition
	}
	s.advanceLocked()
	return nil
}

// End force-finishes the session from any non-terminal state. Host only.
func (s *Session) End(hostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hostID != s.hostID {
		return domain.ErrNotHost
	}
	if s.state == domain.StateEnded {
		return domain.ErrInvalidTransition
	}
	s.endLocked()
	return nil
}

// SubmitAnswer records one answer for the active question. The session clock
// is authoritative for the timeout check; client-reported time is never
// trusted. When every participant has answered, the question reveals early.
func (s *Session) SubmitAnswer(participantID string, questionIndex, optionIndex int) (domain.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant, ok := s.participants[participantID]
	if !ok {
		return domain.AnswerResult{}, domain.ErrParticipantNotFound
	}
	for _, record := range participant.Answers {
		if record.QuestionIndex == questionIndex {
			return domain.AnswerResult{}, domain.ErrAlreadyAnswered
		}
	}
	if s.state != domain.StateQuestionActive || questionIndex != s.questionIndex {
		return domain.AnswerResult{}, domain.ErrQuestionNotActive
	}
	question := s.quiz.Questions[s.questionIndex]
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return domain.AnswerResult{}, domain.ErrInvalidOption
	}

	submittedAt := s.now()
	limit := time.Duration(question.TimeLimitSeconds) * time.Second
	elapsed := submittedAt.Sub(s.questionStartedAt)
	if elapsed > limit {
		return domain.AnswerResult{}, domain.ErrAnswerAfterTimeout
	}

	correct := optionIndex == question.CorrectOptionIndex
	awarded := Score(correct, s.cfg.BasePoints, limit, elapsed)

	participant.Answers = append(participant.Answers, domain.AnswerRecord{
		QuestionIndex:       s.questionIndex,
		SelectedOptionIndex: optionIndex,
		SubmittedAt:         submittedAt,
		Correct:             correct,
		PointsAwarded:       awarded,
	})
	participant.Score += awarded
	s.answered[participantID] = true

	result := domain.AnswerResult{
		QuestionIndex: s.questionIndex,
		Correct:       correct,
		Awarded:       awarded,
		TotalScore:    participant.Score,
	}

	if len(s.answered) == len(s.participants) {
		s.revealLocked()
	}
	return result, nil
}

// Subscribe registers a client for session events. The caller must invoke
// the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Snapshot returns the resync view for one client. Only the requesting
// participant's own answer records are included, and the correct option
// index is never exposed while a question is active.
func (s *Session) Snapshot(participantID string) domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.Snapshot{
		Code:          s.code,
		QuizID:        s.quiz.ID,
		QuizTitle:     s.quiz.Title,
		State:         s.state,
		QuestionIndex: s.questionIndex,
		Leaderboard:   s.leaderboardLocked(),
	}
	if s.state == domain.StateQuestionActive || s.state == domain.StateQuestionReveal {
		view := s.questionViewLocked()
		snap.CurrentQuestion = &view
	}
	if participant, ok := s.participants[participantID]; ok {
		snap.Answers = append([]domain.AnswerRecord(nil), participant.Answers...)
	}
	return snap
}

// ParticipantCount reports the current roster size.
func (s *Session) ParticipantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}

// State reports the current lifecycle phase.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) beginQuestionLocked(idx int) {
	s.state = domain.StateQuestionActive
	s.questionIndex = idx
	s.questionStartedAt = s.now()
	s.answered = make(map[string]bool)

	question := s.quiz.Questions[idx]
	s.scheduleLocked(time.Duration(question.TimeLimitSeconds)*time.Second, func(gen int) {
		s.questionTimeout(gen, idx)
	})
	s.publishLocked(domain.Event{Type: domain.EventQuestion, Payload: s.questionViewLocked()})
}

// questionTimeout fires when the time limit elapses with answers still
// pending. Stale generations are ignored so a cancelled timer can never
// reveal the wrong question.
func (s *Session) questionTimeout(gen, idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen || s.state != domain.StateQuestionActive || idx != s.questionIndex {
		return
	}
	s.revealLocked()
}

func (s *Session) revealLocked() {
	s.cancelTimerLocked()
	s.state = domain.StateQuestionReveal

	question := s.quiz.Questions[s.questionIndex]
	s.publishLocked(domain.Event{Type: domain.EventReveal, Payload: domain.RevealPayload{
		QuestionIndex:      s.questionIndex,
		CorrectOptionIndex: question.CorrectOptionIndex,
		AnswerCount:        len(s.answered),
		Leaderboard:        s.leaderboardLocked(),
		LastQuestion:       s.questionIndex == len(s.quiz.Questions)-1,
	}})

	if s.cfg.RevealDuration > 0 {
		s.scheduleLocked(s.cfg.RevealDuration, s.revealTimeout)
	}
}

func (s *Session) revealTimeout(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen || s.state != domain.StateQuestionReveal {
		return
	}
	s.advanceLocked()
}

func (s *Session) advanceLocked() {
	if s.questionIndex+1 >= len(s.quiz.Questions) {
		s.endLocked()
		return
	}
	s.beginQuestionLocked(s.questionIndex + 1)
}

func (s *Session) endLocked() {
	s.cancelTimerLocked()
	s.state = domain.StateEnded

	final := s.leaderboardLocked()
	s.publishLocked(domain.Event{Type: domain.EventEnded, Payload: domain.EndedPayload{
		Code:        s.code,
		Leaderboard: final,
	}})

	if s.onEnd != nil {
		fn := s.onEnd
		s.onEnd = nil
		result := domain.SessionResult{
			Code:        s.code,
			QuizID:      s.quiz.ID,
			HostID:      s.hostID,
			Leaderboard: final,
			EndedAt:     s.now(),
		}
		go fn(result)
	}
}

func (s *Session) scheduleLocked(d time.Duration, fn func(gen int)) {
	s.cancelTimerLocked()
	gen := s.timerGen
	s.timer = time.AfterFunc(d, func() { fn(gen) })
}

func (s *Session) cancelTimerLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) publishLocked(event domain.Event) {
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest pending event rather than block the session on
			// a slow client; reconnecting clients resync from a snapshot.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

func (s *Session) questionViewLocked() domain.QuestionView {
	question := s.quiz.Questions[s.questionIndex]
	return domain.QuestionView{
		Index:            s.questionIndex,
		Text:             question.Text,
		Options:          append([]string(nil), question.Options...),
		TimeLimitSeconds: question.TimeLimitSeconds,
		TotalQuestions:   len(s.quiz.Questions),
	}
}

func (s *Session) lobbyUpdateLocked() domain.LobbyUpdate {
	names := make([]string, 0, len(s.participants))
	for _, p := range s.participants {
		names = append(names, p.DisplayName)
	}
	sort.Strings(names)
	return domain.LobbyUpdate{
		Code:             s.code,
		QuizTitle:        s.quiz.Title,
		ParticipantCount: len(s.participants),
		DisplayNames:     names,
	}
}

func (s *Session) leaderboardLocked() domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(s.participants))
	for _, p := range s.participants {
		entries = append(entries, domain.LeaderboardEntry{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Score:         p.Score,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		// Tie-break by who joined first, then name.
		pi := s.participants[entries[i].ParticipantID]
		pj := s.participants[entries[j].ParticipantID]
		if !pi.JoinedAt.Equal(pj.JoinedAt) {
			return pi.JoinedAt.Before(pj.JoinedAt)
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
	return domain.Leaderboard{
		Code:      s.code,
		Entries:   entries,
		UpdatedAt: s.now(),
	}
}
