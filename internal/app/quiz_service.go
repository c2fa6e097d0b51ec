package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"trivia-quiz-service/internal/clock"
	"trivia-quiz-service/internal/domain"
)

// MaxAmount is the largest question count the remote API serves per request.
const MaxAmount = 50

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// StartRequest is what the configuration screen produces.
type StartRequest struct {
	Amount     int
	Difficulty string
	Player     string
}

// QuizService contains the quiz use cases shared by the terminal and HTTP front ends.
type QuizService struct {
	sessions SessionRepository
	source   QuestionProvider
	recorder *Recorder
	clock    clock.Scheduler
	cfg      SessionConfig
	newID    func() string
}

func NewQuizService(sessions SessionRepository, source QuestionProvider, recorder *Recorder, sched clock.Scheduler, cfg SessionConfig) *QuizService {
	if sched == nil {
		sched = clock.Real{}
	}
	return &QuizService{
		sessions: sessions,
		source:   source,
		recorder: recorder,
		clock:    sched,
		cfg:      cfg,
		newID:    uuid.NewString,
	}
}

// Create validates the request and registers a session in the loading state.
func (s *QuizService) Create(req StartRequest) (*Session, error) {
	if req.Amount < 1 || req.Amount > MaxAmount {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", domain.ErrInvalidAmount, req.Amount, MaxAmount)
	}
	difficulty, err := domain.ParseDifficulty(req.Difficulty)
	if err != nil {
		return nil, err
	}

	recorder := s.recorder.ForPlayer(req.Player)
	session := NewSession(SessionOptions{
		ID:         s.newID(),
		Player:     req.Player,
		Amount:     req.Amount,
		Difficulty: difficulty,
		Config:     s.cfg,
		Clock:      s.clock,
		NewID:      s.newID,
		OnComplete: func(result domain.SessionResult) {
			if err := recorder.Record(context.Background(), result); err != nil {
				slog.Warn("session result only partially persisted", "result", result.ID, "error", err)
			}
		},
	})
	s.sessions.Put(session)
	return session, nil
}

// Load fetches questions for session and moves it out of loading. It returns
// domain.ErrNoQuestions when neither the remote API nor the fallback produced any.
func (s *QuizService) Load(ctx context.Context, session *Session) error {
	view := session.View()
	questions := s.source.Questions(ctx, view.Amount, view.Difficulty)
	if err := session.Load(questions); err != nil {
		if errors.Is(err, domain.ErrSessionClosed) {
			slog.Debug("discarding questions for closed session", "session", session.ID())
		}
		return err
	}
	slog.Info("session started", "session", session.ID(), "player", session.Player(), "questions", len(questions))
	return nil
}

// Start creates a session and loads its questions in the background.
func (s *QuizService) Start(ctx context.Context, req StartRequest) (*Session, error) {
	session, err := s.Create(req)
	if err != nil {
		return nil, err
	}
	go func() {
		_ = s.Load(context.WithoutCancel(ctx), session)
	}()
	return session, nil
}

func (s *QuizService) Get(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Select submits an answer for the current question of a session.
func (s *QuizService) Select(sessionID, option string) (domain.AnswerRecord, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	return session.Select(option)
}

// Finish ends a session early and returns the persisted result.
func (s *QuizService) Finish(sessionID string) (domain.SessionResult, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return domain.SessionResult{}, err
	}
	return session.Finish()
}

func (s *QuizService) Restart(sessionID string) error {
	session, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	return session.Restart()
}

// Close tears a session down and forgets it.
func (s *QuizService) Close(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
}

func (s *QuizService) Latest(ctx context.Context, player string) (domain.SessionResult, error) {
	return s.recorder.ForPlayer(player).Latest(ctx)
}

func (s *QuizService) History(ctx context.Context, player string) ([]domain.SessionResult, error) {
	return s.recorder.ForPlayer(player).History(ctx)
}

func (s *QuizService) ViewHistoryEntry(ctx context.Context, player string, index int) (domain.SessionResult, error) {
	return s.recorder.ForPlayer(player).ViewHistoryEntry(ctx, index)
}

func (s *QuizService) ClearHistory(ctx context.Context, player string) error {
	return s.recorder.ForPlayer(player).ClearHistory(ctx)
}

func (s *QuizService) HighScore(ctx context.Context, player string) (int, error) {
	return s.recorder.ForPlayer(player).HighScore(ctx)
}

func (s *QuizService) ClearHighScore(ctx context.Context, player string) error {
	return s.recorder.ForPlayer(player).ClearHighScore(ctx)
}
