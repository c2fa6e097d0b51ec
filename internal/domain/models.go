package domain

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty filters remote questions. DifficultyAny applies no filter.
type Difficulty string

const (
	DifficultyAny    Difficulty = "any"
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty accepts "", "any", "easy", "medium" and "hard" (case-insensitive).
func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case "", DifficultyAny:
		return DifficultyAny, nil
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, raw)
	}
}

// RawQuestion is the wire shape shared by the remote API, the bundled dataset
// and the Postgres question bank.
type RawQuestion struct {
	Category         string   `json:"category,omitempty"`
	Difficulty       string   `json:"difficulty,omitempty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// Question is a normalized multiple-choice question. Options are shuffled once
// when the question is built and never change afterwards.
type Question struct {
	Prompt           string   `json:"question"`
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
	Options          []string `json:"options"`
}

// HasOption reports whether option was presented for this question.
func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// AnswerRecord is written exactly once per locked question.
type AnswerRecord struct {
	Prompt        string   `json:"question"`
	Selected      *string  `json:"selected"`
	CorrectAnswer string   `json:"correctAnswer"`
	Correct       bool     `json:"correct"`
	Options       []string `json:"options"`
	TimedOut      bool     `json:"timedOut"`
}

// SessionResult summarizes a completed or early-terminated attempt.
type SessionResult struct {
	ID         string         `json:"id"`
	Answers    []AnswerRecord `json:"answers"`
	Score      int            `json:"score"`
	Total      int            `json:"total"`
	Timestamp  time.Time      `json:"timestamp"`
	Amount     int            `json:"amount"`
	Difficulty Difficulty     `json:"difficulty"`
}

// SessionState is the coarse state of a quiz session.
type SessionState string

const (
	StateLoading     SessionState = "loading"
	StateInProgress  SessionState = "in_progress"
	StateLocked      SessionState = "locked"
	StateComplete    SessionState = "complete"
	StateUnavailable SessionState = "unavailable"
)

// QuestionView is the client-facing part of a question; the correct answer is
// withheld until the question locks.
type QuestionView struct {
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

// SessionView is a point-in-time snapshot pushed to session subscribers.
type SessionView struct {
	SessionID  string         `json:"sessionId"`
	State      SessionState   `json:"state"`
	Index      int            `json:"index"`
	Total      int            `json:"total"`
	Question   *QuestionView  `json:"question,omitempty"`
	TimeLeft   int            `json:"timeLeft"`
	LastAnswer *AnswerRecord  `json:"lastAnswer,omitempty"`
	Answered   int            `json:"answered"`
	Amount     int            `json:"amount"`
	Difficulty Difficulty     `json:"difficulty"`
	Result     *SessionResult `json:"result,omitempty"`
}
