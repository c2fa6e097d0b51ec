package app

import (
	"context"
	"html"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
	"trivia-quiz-service/internal/domain"
)

// QuestionFetcher requests questions from the remote trivia API.
type QuestionFetcher interface {
	FetchQuestions(ctx context.Context, amount int, difficulty domain.Difficulty) ([]domain.RawQuestion, error)
}

// QuestionBank provides the local fallback question set.
type QuestionBank interface {
	LoadQuestions(ctx context.Context) ([]domain.RawQuestion, error)
}

// QuestionProvider is what sessions are fed from.
type QuestionProvider interface {
	Questions(ctx context.Context, amount int, difficulty domain.Difficulty) []domain.Question
}

// QuestionSource fetches remote questions and degrades to the fallback bank on
// any failure. It never returns an error; an empty slice means nothing was usable.
type QuestionSource struct {
	remote   QuestionFetcher
	fallback QuestionBank
	shuffler *Shuffler
	sf       singleflight.Group
}

func NewQuestionSource(remote QuestionFetcher, fallback QuestionBank, shuffler *Shuffler) *QuestionSource {
	return &QuestionSource{remote: remote, fallback: fallback, shuffler: shuffler}
}

func (s *QuestionSource) Questions(ctx context.Context, amount int, difficulty domain.Difficulty) []domain.Question {
	raw, err := s.fetchRemote(ctx, amount, difficulty)
	if err != nil {
		slog.Warn("using fallback questions", "amount", amount, "difficulty", difficulty, "error", err)
		raw = s.loadFallback(ctx, amount)
	}

	questions := make([]domain.Question, 0, len(raw))
	for _, q := range raw {
		questions = append(questions, BuildQuestion(q, s.shuffler))
	}
	return questions
}

func (s *QuestionSource) fetchRemote(ctx context.Context, amount int, difficulty domain.Difficulty) ([]domain.RawQuestion, error) {
	if s.remote == nil {
		return nil, domain.ErrNetworkFailure
	}
	key := strconv.Itoa(amount) + ":" + string(difficulty)
	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.remote.FetchQuestions(ctx, amount, difficulty)
	})
	if err != nil {
		return nil, err
	}
	raw := result.([]domain.RawQuestion)
	if len(raw) == 0 {
		return nil, domain.ErrDataFailure
	}
	return raw, nil
}

func (s *QuestionSource) loadFallback(ctx context.Context, amount int) []domain.RawQuestion {
	if s.fallback == nil {
		return nil
	}
	raw, err := s.fallback.LoadQuestions(ctx)
	if err != nil {
		slog.Error("fallback questions unavailable", "error", err)
		return nil
	}
	if amount >= 0 && len(raw) > amount {
		raw = raw[:amount]
	}
	return raw
}

// BuildQuestion decodes HTML entities and shuffles the merged, de-duplicated
// option set once.
func BuildQuestion(raw domain.RawQuestion, shuffler *Shuffler) domain.Question {
	correct := html.UnescapeString(raw.CorrectAnswer)
	incorrect := make([]string, 0, len(raw.IncorrectAnswers))
	seen := map[string]struct{}{correct: {}}
	options := []string{correct}
	for _, ia := range raw.IncorrectAnswers {
		decoded := html.UnescapeString(ia)
		incorrect = append(incorrect, decoded)
		if _, dup := seen[decoded]; dup {
			continue
		}
		seen[decoded] = struct{}{}
		options = append(options, decoded)
	}

	return domain.Question{
		Prompt:           html.UnescapeString(raw.Question),
		CorrectAnswer:    correct,
		IncorrectAnswers: incorrect,
		Options:          shuffler.Strings(options),
	}
}

// Shuffler produces uniform permutations from a seedable source; safe for
// concurrent use.
type Shuffler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewShuffler(seed int64) *Shuffler {
	return &Shuffler{rnd: rand.New(rand.NewSource(seed))}
}

// Strings returns a shuffled copy of items.
func (s *Shuffler) Strings(items []string) []string {
	out := append([]string(nil), items...)
	s.mu.Lock()
	s.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	s.mu.Unlock()
	return out
}
