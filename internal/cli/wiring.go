package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/dataset"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/infra/opentdb"
	pgbank "trivia-quiz-service/internal/infra/postgres"
	redisstore "trivia-quiz-service/internal/infra/redis"
	"trivia-quiz-service/internal/infra/sqlite"
)

func sessionConfig(cfg config.Config) app.SessionConfig {
	def := app.DefaultSessionConfig()
	return app.SessionConfig{
		TimeLimit: config.Duration(cfg.Quiz.TimeLimit, def.TimeLimit),
		Tick:      config.Duration(cfg.Quiz.Tick, def.Tick),
		LockDelay: config.Duration(cfg.Quiz.LockDelay, def.LockDelay),
	}
}

// newQuestionSource wires the remote API in front of the fallback bank. The
// fallback comes from Postgres when configured, the bundled dataset otherwise.
func newQuestionSource(ctx context.Context, cfg config.Config) (*app.QuestionSource, func(), error) {
	cleanup := func() {}

	var fallback app.QuestionBank
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connect postgres: %w", err)
		}
		cleanup = pool.Close
		fallback = memory.NewCachedBank(pgbank.NewQuestionBank(pool), config.Duration(cfg.Quiz.FallbackTTL, 10*time.Minute))
	} else {
		questions, err := dataset.Default()
		if err != nil {
			return nil, cleanup, err
		}
		fallback = memory.NewStaticBank(questions)
	}

	var remote app.QuestionFetcher
	if cfg.Quiz.APIURL != "" {
		remote = opentdb.NewClient(cfg.Quiz.APIURL, config.Duration(cfg.Quiz.RequestTimeout, 10*time.Second))
	}
	return app.NewQuestionSource(remote, fallback, app.NewShuffler(time.Now().UnixNano())), cleanup, nil
}

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// newKVStore picks the results store named by storage.driver.
func newKVStore(cfg config.Config, client *redis.Client) (app.KVStore, func(), error) {
	switch cfg.Storage.Driver {
	case "", "memory":
		return memory.NewKVStore(), func() {}, nil
	case "redis":
		if client == nil {
			return nil, nil, fmt.Errorf("storage driver redis needs redis.addr")
		}
		return redisstore.NewKVStore(client), func() {}, nil
	case "sqlite":
		return openSQLite(cfg.Storage.Path)
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func openSQLite(path string) (app.KVStore, func(), error) {
	if path == "" {
		path = defaultDBPath()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "trivia.db"
	}
	return filepath.Join(home, ".trivia", "quiz.db")
}
