package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/clock"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

var testSessionConfig = app.SessionConfig{
	TimeLimit: 30 * time.Second,
	Tick:      time.Second,
	LockDelay: 600 * time.Millisecond,
}

func sampleQuestions() []domain.RawQuestion {
	return []domain.RawQuestion{
		{Question: "What is 2 + 2?", CorrectAnswer: "4", IncorrectAnswers: []string{"3", "5", "22"}},
		{Question: "Capital of France?", CorrectAnswer: "Paris", IncorrectAnswers: []string{"Lyon", "Nice", "Lille"}},
		{Question: "Largest planet?", CorrectAnswer: "Jupiter", IncorrectAnswers: []string{"Mars", "Venus", "Saturn"}},
	}
}

func correctAnswers() map[string]string {
	answers := map[string]string{}
	for _, q := range sampleQuestions() {
		answers[q.Question] = q.CorrectAnswer
	}
	return answers
}

func newTestServer(t *testing.T) (*httptest.Server, *app.QuizService, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	// no remote client: every session is served from the fallback bank
	source := app.NewQuestionSource(nil, memory.NewStaticBank(sampleQuestions()), app.NewShuffler(1))
	recorder := app.NewRecorder(memory.NewKVStore(), 0)
	service := app.NewQuizService(memory.NewSessionStore(), source, recorder, clk, testSessionConfig)

	server := httptest.NewServer(NewRouter(service, 5))
	t.Cleanup(server.Close)
	return server, service, clk
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readNext(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	var msg envelope
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg
}

// readState skips messages until a state snapshot satisfies match.
func readState(t *testing.T, conn *websocket.Conn, match func(domain.SessionView) bool) domain.SessionView {
	t.Helper()
	for i := 0; i < 100; i++ {
		msg := readNext(t, conn)
		if msg.Type != "state" {
			continue
		}
		var view domain.SessionView
		if err := json.Unmarshal(msg.Payload, &view); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if match(view) {
			return view
		}
	}
	t.Fatalf("no matching state received")
	return domain.SessionView{}
}

func readType(t *testing.T, conn *websocket.Conn, typ string) json.RawMessage {
	t.Helper()
	for i := 0; i < 100; i++ {
		msg := readNext(t, conn)
		if msg.Type == typ {
			return msg.Payload
		}
	}
	t.Fatalf("no %s message received", typ)
	return nil
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWebSocketQuizFlow(t *testing.T) {
	server, service, clk := newTestServer(t)
	conn := dial(t, server, "amount=2&difficulty=easy&player=alice")
	answers := correctAnswers()

	for i := 0; i < 2; i++ {
		view := readState(t, conn, func(v domain.SessionView) bool {
			return v.State == domain.StateInProgress && v.Index == i
		})
		if view.Total != 2 || view.Question == nil || len(view.Question.Options) != 4 {
			t.Fatalf("unexpected question view %+v", view)
		}
		sendJSON(t, conn, map[string]any{"type": "answer", "payload": map[string]string{"option": answers[view.Question.Prompt]}})

		locked := readState(t, conn, func(v domain.SessionView) bool { return v.State == domain.StateLocked })
		if locked.LastAnswer == nil || !locked.LastAnswer.Correct {
			t.Fatalf("expected correct lock feedback, got %+v", locked.LastAnswer)
		}
		clk.Advance(testSessionConfig.LockDelay)
	}

	var payload resultPayload
	if err := json.Unmarshal(readType(t, conn, "result"), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if payload.Result.Score != 2 || payload.Result.Total != 2 || payload.HighScore != 2 {
		t.Fatalf("unexpected result %+v", payload)
	}
	if payload.Result.Difficulty != domain.DifficultyEasy {
		t.Fatalf("expected difficulty recorded, got %q", payload.Result.Difficulty)
	}

	history, err := service.History(context.Background(), "alice")
	if err != nil || len(history) != 1 {
		t.Fatalf("expected one history entry, got %d (%v)", len(history), err)
	}
}

func TestWebSocketFinishEarly(t *testing.T) {
	server, _, clk := newTestServer(t)
	conn := dial(t, server, "amount=3")
	answers := correctAnswers()

	view := readState(t, conn, func(v domain.SessionView) bool { return v.State == domain.StateInProgress })
	sendJSON(t, conn, map[string]any{"type": "answer", "payload": map[string]string{"option": answers[view.Question.Prompt]}})
	readState(t, conn, func(v domain.SessionView) bool { return v.State == domain.StateLocked })
	clk.Advance(testSessionConfig.LockDelay)
	readState(t, conn, func(v domain.SessionView) bool { return v.State == domain.StateInProgress && v.Index == 1 })

	sendJSON(t, conn, map[string]any{"type": "finish"})

	var payload resultPayload
	if err := json.Unmarshal(readType(t, conn, "result"), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if payload.Result.Total != 3 || len(payload.Result.Answers) != 1 || payload.Result.Score != 1 {
		t.Fatalf("unexpected early result %+v", payload.Result)
	}
}

func TestWebSocketRejectsLockedAnswer(t *testing.T) {
	server, _, _ := newTestServer(t)
	conn := dial(t, server, "amount=1")

	view := readState(t, conn, func(v domain.SessionView) bool { return v.State == domain.StateInProgress })
	option := view.Question.Options[0]
	sendJSON(t, conn, map[string]any{"type": "answer", "payload": map[string]string{"option": option}})
	readState(t, conn, func(v domain.SessionView) bool { return v.State == domain.StateLocked })
	sendJSON(t, conn, map[string]any{"type": "answer", "payload": map[string]string{"option": option}})

	var payload errorPayload
	if err := json.Unmarshal(readType(t, conn, "error"), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Message != domain.ErrQuestionLocked.Error() {
		t.Fatalf("expected locked error, got %q", payload.Message)
	}
}

func TestWebSocketRejectsInvalidRequest(t *testing.T) {
	server, _, _ := newTestServer(t)
	u := "ws" + server.URL[len("http"):] + "/ws?amount=0"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %+v", resp)
	}
}
