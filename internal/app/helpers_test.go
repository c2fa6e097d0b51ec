package app_test

import (
	"context"
	"fmt"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/clock"
	"trivia-quiz-service/internal/domain"
)

var testConfig = app.SessionConfig{
	TimeLimit: 30 * time.Second,
	Tick:      time.Second,
	LockDelay: 600 * time.Millisecond,
}

func newTestClock() *clock.Manual {
	return clock.NewManual(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
}

// sampleQuestions builds n questions whose correct answer is "right-i".
func sampleQuestions(n int) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		correct := fmt.Sprintf("right-%d", i)
		incorrect := []string{fmt.Sprintf("wrong-%d-a", i), fmt.Sprintf("wrong-%d-b", i), fmt.Sprintf("wrong-%d-c", i)}
		questions = append(questions, domain.Question{
			Prompt:           fmt.Sprintf("Question %d?", i),
			CorrectAnswer:    correct,
			IncorrectAnswers: incorrect,
			Options:          []string{incorrect[0], correct, incorrect[1], incorrect[2]},
		})
	}
	return questions
}

func sampleRaw(n int) []domain.RawQuestion {
	raw := make([]domain.RawQuestion, 0, n)
	for i := 0; i < n; i++ {
		raw = append(raw, domain.RawQuestion{
			Question:         fmt.Sprintf("Fallback &quot;%d&quot;?", i),
			CorrectAnswer:    fmt.Sprintf("right-%d", i),
			IncorrectAnswers: []string{fmt.Sprintf("wrong-%d-a", i), fmt.Sprintf("wrong-%d-b", i), fmt.Sprintf("wrong-%d-c", i)},
		})
	}
	return raw
}

type failingFetcher struct {
	calls int
}

func (f *failingFetcher) FetchQuestions(context.Context, int, domain.Difficulty) ([]domain.RawQuestion, error) {
	f.calls++
	return nil, fmt.Errorf("%w: connection refused", domain.ErrNetworkFailure)
}

type staticFetcher struct {
	questions []domain.RawQuestion
}

func (f staticFetcher) FetchQuestions(context.Context, int, domain.Difficulty) ([]domain.RawQuestion, error) {
	return f.questions, nil
}

type staticProvider struct {
	questions []domain.Question
}

func (p staticProvider) Questions(context.Context, int, domain.Difficulty) []domain.Question {
	return p.questions
}

func correctOf(view domain.SessionView, questions []domain.Question) string {
	for _, q := range questions {
		if q.Prompt == view.Question.Prompt {
			return q.CorrectAnswer
		}
	}
	return ""
}
