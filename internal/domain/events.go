package domain

// Event is the envelope pushed to every client subscribed to a session.
// Delivery is at-most-once; reconnecting clients must resync instead of
// relying on replay.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event types published by a session. Ordering is guaranteed per session per
// client because every publish happens under the session's lock.
const (
	EventLobby    = "lobby"
	EventQuestion = "question"
	EventReveal   = "reveal"
	EventEnded    = "ended"
)

// LobbyUpdate is broadcast whenever the roster changes before start.
type LobbyUpdate struct {
	Code             string   `json:"code"`
	QuizTitle        string   `json:"quizTitle"`
	ParticipantCount int      `json:"participantCount"`
	DisplayNames     []string `json:"displayNames"`
}

// RevealPayload carries the correct option and interim standings.
type RevealPayload struct {
	QuestionIndex      int         `json:"questionIndex"`
	CorrectOptionIndex int         `json:"correctOptionIndex"`
	AnswerCount        int         `json:"answerCount"`
	Leaderboard        Leaderboard `json:"leaderboard"`
	LastQuestion       bool        `json:"lastQuestion"`
}

// EndedPayload carries the final standings.
type EndedPayload struct {
	Code        string      `json:"code"`
	Leaderboard Leaderboard `json:"leaderboard"`
}
