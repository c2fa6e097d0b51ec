package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/clock"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

func newTestService(clk *clock.Manual, questions []domain.Question) (*app.QuizService, *memory.SessionStore) {
	sessions := memory.NewSessionStore()
	recorder := app.NewRecorder(memory.NewKVStore(), 0)
	return app.NewQuizService(sessions, staticProvider{questions: questions}, recorder, clk, testConfig), sessions
}

func TestQuizServiceValidatesRequest(t *testing.T) {
	svc, _ := newTestService(newTestClock(), sampleQuestions(1))

	cases := []struct {
		name string
		req  app.StartRequest
		want error
	}{
		{"zero amount", app.StartRequest{Amount: 0, Difficulty: "easy"}, domain.ErrInvalidAmount},
		{"too many", app.StartRequest{Amount: app.MaxAmount + 1, Difficulty: "easy"}, domain.ErrInvalidAmount},
		{"bad difficulty", app.StartRequest{Amount: 5, Difficulty: "brutal"}, domain.ErrInvalidDifficulty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestQuizServicePlaysAndRecords(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock()
	questions := sampleQuestions(5)
	svc, _ := newTestService(clk, questions)

	session, err := svc.Create(app.StartRequest{Amount: 5, Difficulty: "any", Player: "alice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Load(ctx, session); err != nil {
		t.Fatalf("load: %v", err)
	}

	for i := 0; i < 5; i++ {
		view := session.View()
		answer := correctOf(view, questions)
		if i == 4 {
			answer = questions[4].IncorrectAnswers[0]
		}
		if _, err := svc.Select(session.ID(), answer); err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		clk.Advance(testConfig.LockDelay)
	}

	select {
	case <-session.Done():
	case <-time.After(time.Second):
		t.Fatalf("session did not complete")
	}

	latest, err := svc.Latest(ctx, "alice")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Score != 4 || latest.Total != 5 || latest.Amount != 5 {
		t.Fatalf("unexpected result %+v", latest)
	}
	if best, _ := svc.HighScore(ctx, "alice"); best != 4 {
		t.Fatalf("expected high score 4, got %d", best)
	}
	if history, _ := svc.History(ctx, "alice"); len(history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(history))
	}
	if best, _ := svc.HighScore(ctx, ""); best != 0 {
		t.Fatalf("anonymous high score should be untouched, got %d", best)
	}
}

func TestQuizServiceFinishEarly(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock()
	questions := sampleQuestions(5)
	svc, _ := newTestService(clk, questions)

	session, _ := svc.Create(app.StartRequest{Amount: 5, Difficulty: "medium"})
	if err := svc.Load(ctx, session); err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Select(session.ID(), correctOf(session.View(), questions)); err != nil {
			t.Fatalf("select: %v", err)
		}
		clk.Advance(testConfig.LockDelay)
	}
	result, err := svc.Finish(session.ID())
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if result.Total != 5 || len(result.Answers) != 2 || result.Difficulty != domain.DifficultyMedium {
		t.Fatalf("unexpected result %+v", result)
	}
	<-session.Done()
	if latest, _ := svc.Latest(ctx, ""); latest.ID != result.ID {
		t.Fatalf("expected finished result persisted, got %+v", latest)
	}
}

func TestQuizServiceWithoutQuestions(t *testing.T) {
	svc, _ := newTestService(newTestClock(), nil)
	session, _ := svc.Create(app.StartRequest{Amount: 5, Difficulty: "easy"})
	if err := svc.Load(context.Background(), session); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if got := session.View().State; got != domain.StateUnavailable {
		t.Fatalf("expected unavailable, got %s", got)
	}
}

func TestQuizServiceStartLoadsInBackground(t *testing.T) {
	svc, _ := newTestService(newTestClock(), sampleQuestions(2))
	session, err := svc.Start(context.Background(), app.StartRequest{Amount: 2, Difficulty: "any"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	updates, cancel := session.Subscribe()
	defer cancel()

	timeout := time.After(time.Second)
	for {
		select {
		case view := <-updates:
			if view.State == domain.StateInProgress {
				return
			}
		case <-timeout:
			t.Fatalf("session never left loading")
		}
	}
}

func TestQuizServiceCloseForgetsSession(t *testing.T) {
	svc, sessions := newTestService(newTestClock(), sampleQuestions(2))
	session, _ := svc.Create(app.StartRequest{Amount: 2, Difficulty: "any"})

	svc.Close(session.ID())
	if _, ok := sessions.Get(session.ID()); ok {
		t.Fatalf("expected session removed from store")
	}
	if _, err := svc.Select(session.ID(), "x"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.Load(context.Background(), session); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed for late load, got %v", err)
	}
}
