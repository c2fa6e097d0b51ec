package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// CachedBank caches a slower question bank (e.g. Postgres) with a TTL so the
// fallback path does not hit the backing store on every failed fetch.
type CachedBank struct {
	loader app.QuestionBank
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	questions []domain.RawQuestion
	expiresAt time.Time
}

func NewCachedBank(loader app.QuestionBank, ttl time.Duration) *CachedBank {
	return &CachedBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *CachedBank) LoadQuestions(ctx context.Context) ([]domain.RawQuestion, error) {
	if questions, ok := b.cached(b.clock()); ok {
		return questions, nil
	}

	result, err, _ := b.sf.Do("questions", func() (interface{}, error) {
		now := b.clock()
		if questions, ok := b.cached(now); ok {
			return questions, nil
		}

		questions, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.questions = questions
		b.expiresAt = now.Add(b.ttlWithJitter())
		b.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.RawQuestion), nil
}

func (b *CachedBank) cached(now time.Time) ([]domain.RawQuestion, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.questions != nil && b.expiresAt.After(now) {
		return b.questions, true
	}
	return nil, false
}

func (b *CachedBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

// StaticBank serves a fixed question list (the bundled dataset, tests).
type StaticBank struct {
	questions []domain.RawQuestion
}

func NewStaticBank(questions []domain.RawQuestion) *StaticBank {
	return &StaticBank{questions: questions}
}

func (b *StaticBank) LoadQuestions(_ context.Context) ([]domain.RawQuestion, error) {
	return append([]domain.RawQuestion(nil), b.questions...), nil
}
