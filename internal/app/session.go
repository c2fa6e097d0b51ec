package app

import (
	"sync"
	"time"

	"trivia-quiz-service/internal/clock"
	"trivia-quiz-service/internal/domain"
)

// SessionConfig holds the timing of a quiz session.
type SessionConfig struct {
	TimeLimit time.Duration // per question
	Tick      time.Duration // countdown granularity
	LockDelay time.Duration // pause between locking and the next question
}

// DefaultSessionConfig mirrors the classic 30 second quiz screen.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TimeLimit: 30 * time.Second,
		Tick:      time.Second,
		LockDelay: 600 * time.Millisecond,
	}
}

// Session is one run through a question set. All transitions, including timer
// callbacks, are serialized by mu. At most one timer is pending at a time; gen
// invalidates callbacks from timers that were replaced.
type Session struct {
	id         string
	player     string
	amount     int
	difficulty domain.Difficulty
	cfg        SessionConfig
	clock      clock.Scheduler
	newID      func() string
	onComplete func(domain.SessionResult)
	done       chan struct{}

	mu          sync.Mutex
	state       domain.SessionState
	questions   []domain.Question
	index       int
	answers     []domain.AnswerRecord
	timeLeft    time.Duration
	timer       clock.Timer
	gen         uint64
	result      *domain.SessionResult
	closed      bool
	subscribers map[chan domain.SessionView]struct{}
}

// SessionOptions configures NewSession.
type SessionOptions struct {
	ID         string
	Player     string
	Amount     int
	Difficulty domain.Difficulty
	Config     SessionConfig
	Clock      clock.Scheduler
	// NewID names the SessionResult; defaults to the session id.
	NewID func() string
	// OnComplete runs once, outside the session lock, after the result is built.
	OnComplete func(domain.SessionResult)
}

// NewSession creates a session in the loading state.
func NewSession(opts SessionOptions) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Config == (SessionConfig{}) {
		opts.Config = DefaultSessionConfig()
	}
	if opts.Difficulty == "" {
		opts.Difficulty = domain.DifficultyAny
	}
	newID := opts.NewID
	if newID == nil {
		id := opts.ID
		newID = func() string { return id }
	}
	return &Session{
		id:          opts.ID,
		player:      opts.Player,
		amount:      opts.Amount,
		difficulty:  opts.Difficulty,
		cfg:         opts.Config,
		clock:       opts.Clock,
		newID:       newID,
		onComplete:  opts.OnComplete,
		done:        make(chan struct{}),
		state:       domain.StateLoading,
		subscribers: make(map[chan domain.SessionView]struct{}),
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) Player() string { return s.player }

// Done is closed once the session completed and the completion hook returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Load hands the fetched questions to the session. A session torn down while
// the fetch was in flight discards them.
func (s *Session) Load(questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state != domain.StateLoading {
		return domain.ErrSessionComplete
	}
	if len(questions) == 0 {
		s.state = domain.StateUnavailable
		s.broadcastLocked()
		return domain.ErrNoQuestions
	}
	s.questions = questions
	s.index = 0
	s.enterQuestionLocked()
	return nil
}

// Select submits an answer for the current question. Once the question is
// locked further selections change nothing and return ErrQuestionLocked.
func (s *Session) Select(option string) (domain.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActiveLocked(); err != nil {
		return domain.AnswerRecord{}, err
	}
	if s.state == domain.StateLocked {
		return domain.AnswerRecord{}, domain.ErrQuestionLocked
	}
	if !s.questions[s.index].HasOption(option) {
		return domain.AnswerRecord{}, domain.ErrOptionNotFound
	}
	selected := option
	return s.lockLocked(&selected, false), nil
}

// Finish ends the session early. Only answers already locked count; the
// question on screen is dropped unless it was answered. Total stays the size
// of the question set.
func (s *Session) Finish() (domain.SessionResult, error) {
	s.mu.Lock()
	if err := s.checkActiveLocked(); err != nil {
		s.mu.Unlock()
		return domain.SessionResult{}, err
	}
	result := s.completeLocked()
	s.mu.Unlock()

	s.finish(result)
	return *result, nil
}

// Restart clears all answers and starts over at the first question with the
// options exactly as first shuffled.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActiveLocked(); err != nil {
		return err
	}
	s.index = 0
	s.answers = nil
	s.enterQuestionLocked()
	return nil
}

// View returns the current snapshot.
func (s *Session) View() domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of snapshots starting with the current one. Slow
// readers lose stale snapshots but always see the latest. The caller must
// invoke the returned cancel function.
func (s *Session) Subscribe() (<-chan domain.SessionView, func()) {
	ch := make(chan domain.SessionView, 8)

	s.mu.Lock()
	if s.closed {
		ch <- s.snapshotLocked()
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
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

// Close tears the session down: pending timers are cancelled and subscribers
// are released. Late loads and timer callbacks are ignored afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTimerLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) checkActiveLocked() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	switch s.state {
	case domain.StateLoading:
		return domain.ErrSessionNotReady
	case domain.StateComplete:
		return domain.ErrSessionComplete
	case domain.StateUnavailable:
		return domain.ErrNoQuestions
	}
	return nil
}

func (s *Session) enterQuestionLocked() {
	s.state = domain.StateInProgress
	s.timeLeft = s.cfg.TimeLimit
	s.armLocked(s.cfg.Tick, s.tickLocked)
	s.broadcastLocked()
}

func (s *Session) tickLocked() *domain.SessionResult {
	s.timeLeft -= s.cfg.Tick
	if s.timeLeft <= 0 {
		s.timeLeft = 0
		s.lockLocked(nil, true)
		return nil
	}
	s.armLocked(s.cfg.Tick, s.tickLocked)
	s.broadcastLocked()
	return nil
}

func (s *Session) lockLocked(selected *string, timedOut bool) domain.AnswerRecord {
	q := s.questions[s.index]
	record := domain.AnswerRecord{
		Prompt:        q.Prompt,
		Selected:      selected,
		CorrectAnswer: q.CorrectAnswer,
		Correct:       selected != nil && *selected == q.CorrectAnswer,
		Options:       q.Options,
		TimedOut:      timedOut && selected == nil,
	}
	s.answers = append(s.answers, record)
	s.state = domain.StateLocked
	s.armLocked(s.cfg.LockDelay, s.advanceLocked)
	s.broadcastLocked()
	return record
}

func (s *Session) advanceLocked() *domain.SessionResult {
	if s.index+1 < len(s.questions) {
		s.index++
		s.enterQuestionLocked()
		return nil
	}
	return s.completeLocked()
}

func (s *Session) completeLocked() *domain.SessionResult {
	s.stopTimerLocked()
	answers := append([]domain.AnswerRecord(nil), s.answers...)
	score := 0
	for _, a := range answers {
		if a.Correct {
			score++
		}
	}
	s.result = &domain.SessionResult{
		ID:         s.newID(),
		Answers:    answers,
		Score:      score,
		Total:      len(s.questions),
		Timestamp:  s.clock.Now(),
		Amount:     s.amount,
		Difficulty: s.difficulty,
	}
	s.state = domain.StateComplete
	s.broadcastLocked()
	return s.result
}

// finish runs the completion hook outside the lock.
func (s *Session) finish(result *domain.SessionResult) {
	if result == nil {
		return
	}
	if s.onComplete != nil {
		s.onComplete(*result)
	}
	close(s.done)
}

// armLocked replaces the pending timer.
func (s *Session) armLocked(d time.Duration, fire func() *domain.SessionResult) {
	s.stopTimerLocked()
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { s.onTimer(gen, fire) })
}

func (s *Session) stopTimerLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) onTimer(gen uint64, fire func() *domain.SessionResult) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	result := fire()
	s.mu.Unlock()

	s.finish(result)
}

func (s *Session) broadcastLocked() {
	view := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// drop the oldest snapshot so the newest always lands
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func (s *Session) snapshotLocked() domain.SessionView {
	view := domain.SessionView{
		SessionID:  s.id,
		State:      s.state,
		Index:      s.index,
		Total:      len(s.questions),
		TimeLeft:   int(s.timeLeft / time.Second),
		Answered:   len(s.answers),
		Amount:     s.amount,
		Difficulty: s.difficulty,
		Result:     s.result,
	}
	switch s.state {
	case domain.StateInProgress, domain.StateLocked:
		q := s.questions[s.index]
		view.Question = &domain.QuestionView{Prompt: q.Prompt, Options: q.Options}
	}
	if s.state == domain.StateLocked && len(s.answers) > 0 {
		last := s.answers[len(s.answers)-1]
		view.LastAnswer = &last
	}
	return view
}
