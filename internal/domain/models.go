package domain

import "time"

// SessionState is the lifecycle phase of a live session.
type SessionState string

const (
	// StateLobby accepts joins and waits for the host to start.
	StateLobby SessionState = "lobby"
	// StateQuestionActive means the current question is open for answers.
	StateQuestionActive SessionState = "question"
	// StateQuestionReveal shows the correct option and interim standings.
	StateQuestionReveal SessionState = "reveal"
	// StateEnded is terminal.
	StateEnded SessionState = "ended"
)

// Participant is a joined player and their running score.
type Participant struct {
	ID          string
	DisplayName string
	JoinedAt    time.Time
	Score       int
	Answers     []AnswerRecord
}

// AnswerRecord is one submitted answer. Immutable once written; at most one
// per (participant, question index).
type AnswerRecord struct {
	QuestionIndex       int       `json:"questionIndex"`
	SelectedOptionIndex int       `json:"selectedOptionIndex"`
	SubmittedAt         time.Time `json:"submittedAt"`
	Correct             bool      `json:"correct"`
	PointsAwarded       int       `json:"pointsAwarded"`
}

// Question models an MCQ question with index-addressed options.
type Question struct {
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	TimeLimitSeconds   int      `json:"timeLimitSeconds"`
}

// Quiz is the externally-authored question bank a session runs through.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// LeaderboardEntry is a snapshot-friendly view of a participant.
type LeaderboardEntry struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Score         int    `json:"score"`
	Position      int    `json:"position"`
}

// Leaderboard captures the ordered scoreboard for a session.
type Leaderboard struct {
	Code      string             `json:"code"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// QuestionView is a question as shown to clients; the correct option index is
// withheld until reveal.
type QuestionView struct {
	Index            int      `json:"index"`
	Text             string   `json:"text"`
	Options          []string `json:"options"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
	TotalQuestions   int      `json:"totalQuestions"`
}

// AnswerResult summarizes the outcome of one submission for one participant.
type AnswerResult struct {
	QuestionIndex int  `json:"questionIndex"`
	Correct       bool `json:"correct"`
	Awarded       int  `json:"awarded"`
	TotalScore    int  `json:"totalScore"`
}

// Snapshot is the resync payload: enough for a reconnecting client to redraw
// without event replay. Answers holds only the requesting participant's own
// records.
type Snapshot struct {
	Code            string         `json:"code"`
	QuizID          string         `json:"quizId"`
	QuizTitle       string         `json:"quizTitle"`
	State           SessionState   `json:"state"`
	QuestionIndex   int            `json:"questionIndex"`
	CurrentQuestion *QuestionView  `json:"currentQuestion,omitempty"`
	Leaderboard     Leaderboard    `json:"leaderboard"`
	Answers         []AnswerRecord `json:"answers,omitempty"`
}

// SessionSummary is what the create endpoint returns to the host.
type SessionSummary struct {
	Code           string       `json:"code"`
	QuizID         string       `json:"quizId"`
	QuizTitle      string       `json:"quizTitle"`
	State          SessionState `json:"state"`
	TotalQuestions int          `json:"totalQuestions"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// SessionResult is the final standings persisted when a session ends.
type SessionResult struct {
	Code        string      `json:"code"`
	QuizID      string      `json:"quizId"`
	HostID      string      `json:"hostId"`
	Leaderboard Leaderboard `json:"leaderboard"`
	EndedAt     time.Time   `json:"endedAt"`
}
