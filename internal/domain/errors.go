package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session id is unknown.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionNotReady is returned while questions are still loading.
	ErrSessionNotReady = errors.New("quiz session is still loading")
	// ErrSessionComplete is returned for any transition after the session finished.
	ErrSessionComplete = errors.New("quiz session already complete")
	// ErrSessionClosed is returned when a torn-down session receives late input.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrNoQuestions marks a session that ended up with an empty question set.
	ErrNoQuestions = errors.New("no questions available")
	// ErrQuestionLocked is returned when the current question already has an answer.
	ErrQuestionLocked = errors.New("question already answered")
	// ErrOptionNotFound indicates a submitted option was not presented for the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidDifficulty indicates an unknown difficulty filter.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrInvalidAmount indicates a question count outside the supported range.
	ErrInvalidAmount = errors.New("invalid question amount")
	// ErrResultNotFound is returned when no latest result has been stored yet.
	ErrResultNotFound = errors.New("no result recorded")
	// ErrHistoryEntryNotFound indicates a history index out of range.
	ErrHistoryEntryNotFound = errors.New("history entry not found")

	// ErrNetworkFailure covers rejected fetches and non-success statuses.
	ErrNetworkFailure = errors.New("question source unreachable")
	// ErrDataFailure covers empty or malformed question payloads.
	ErrDataFailure = errors.New("question source returned unusable data")
	// ErrStorageFailure wraps failed key-value writes.
	ErrStorageFailure = errors.New("storage write failed")
	// ErrKeyNotFound is returned by key-value stores on a missing key.
	ErrKeyNotFound = errors.New("key not found")
)
