package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no active session matches a code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidTransition is returned for out-of-order host actions.
	ErrInvalidTransition = errors.New("invalid session state transition")
	// ErrNotHost is returned when a non-host attempts a host action.
	ErrNotHost = errors.New("action restricted to the session host")
	// ErrSessionNotJoinable is returned when joining an ended session.
	ErrSessionNotJoinable = errors.New("session is not accepting participants")
	// ErrDuplicateName is returned when a display name collides within a session.
	ErrDuplicateName = errors.New("display name already taken in this session")
	// ErrParticipantNotFound is returned when a participant ID is unknown.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrAlreadyAnswered is returned for repeat submissions on one question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrQuestionNotActive is returned when the submission targets a question
	// that is not currently open.
	ErrQuestionNotActive = errors.New("question is not active")
	// ErrAnswerAfterTimeout is returned when the server clock says the
	// question's time limit has passed.
	ErrAnswerAfterTimeout = errors.New("answer submitted after time limit")
	// ErrInvalidOption is returned for option indices outside the question.
	ErrInvalidOption = errors.New("option index out of range")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizEmpty indicates a quiz without questions cannot be hosted.
	ErrQuizEmpty = errors.New("quiz has no questions")
)
