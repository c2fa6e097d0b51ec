package integration

import (
	"context"
	"database/sql"
	"fmt"
	"html"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/clock"
	"trivia-quiz-service/internal/dataset"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/infra/opentdb"
	pgbank "trivia-quiz-service/internal/infra/postgres"
	pgmigrations "trivia-quiz-service/internal/infra/postgres/migrations"
	infraredis "trivia-quiz-service/internal/infra/redis"
)

func TestFallbackQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	bank := memory.NewCachedBank(pgbank.NewQuestionBank(pool), 5*time.Minute)
	seeded, err := bank.LoadQuestions(ctx)
	if err != nil {
		t.Fatalf("load fallback: %v", err)
	}
	bundled, _ := dataset.Default()
	if len(seeded) != len(bundled) {
		t.Fatalf("expected %d seeded questions, got %d", len(bundled), len(seeded))
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	// nothing listens on port 1, so every session uses the Postgres fallback
	remote := opentdb.NewClient("http://127.0.0.1:1/api.php", time.Second)
	source := app.NewQuestionSource(remote, bank, app.NewShuffler(1))
	recorder := app.NewRecorder(infraredis.NewKVStore(redisClient), 0)
	clk := clock.NewManual(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	cfg := app.DefaultSessionConfig()
	service := app.NewQuizService(infraredis.NewSessionStore(redisClient, 5*time.Minute), source, recorder, clk, cfg)

	session, err := service.Create(app.StartRequest{Amount: 5, Difficulty: "hard", Player: "erin"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := service.Load(ctx, session); err != nil {
		t.Fatalf("load: %v", err)
	}
	if n, _ := redisClient.Exists(ctx, "trivia:session:"+session.ID()).Result(); n != 1 {
		t.Fatalf("expected session liveness key")
	}

	answers := map[string]string{}
	for _, q := range bundled {
		answers[html.UnescapeString(q.Question)] = html.UnescapeString(q.CorrectAnswer)
	}
	for i := 0; i < 5; i++ {
		view := session.View()
		if _, err := service.Select(session.ID(), answers[view.Question.Prompt]); err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		clk.Advance(cfg.LockDelay)
	}
	<-session.Done()

	latest, err := service.Latest(ctx, "erin")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Score != 5 || latest.Total != 5 {
		t.Fatalf("expected 5/5, got %d/%d", latest.Score, latest.Total)
	}
	if latest.Difficulty != domain.DifficultyHard || latest.Amount != 5 {
		t.Fatalf("expected requested settings recorded, got %s/%d", latest.Difficulty, latest.Amount)
	}
	if best, _ := service.HighScore(ctx, "erin"); best != 5 {
		t.Fatalf("expected high score 5, got %d", best)
	}
	raw, err := redisClient.Get(ctx, "trivia:player:erin:quizHighScore").Result()
	if err != nil || raw != "5" {
		t.Fatalf("expected high score stored as text, got %q (%v)", raw, err)
	}

	service.Close(session.ID())
	if n, _ := redisClient.Exists(ctx, "trivia:session:"+session.ID()).Result(); n != 0 {
		t.Fatalf("expected liveness key removed on close")
	}
}

type containerSpec struct {
	image   string
	port    string
	env     map[string]string
	timeout time.Duration
}

// startContainer runs spec and returns host:port of its exposed port.
func startContainer(t *testing.T, ctx context.Context, spec containerSpec) (string, func()) {
	t.Helper()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        spec.image,
			Env:          spec.env,
			ExposedPorts: []string{spec.port},
			WaitingFor:   wait.ForListeningPort(nat.Port(spec.port)).WithStartupTimeout(spec.timeout),
		},
		Started: true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start %s: %v", spec.image, err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("%s host: %v", spec.image, err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(spec.port))
	if err != nil {
		t.Fatalf("%s port: %v", spec.image, err)
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	addr, cleanup := startContainer(t, ctx, containerSpec{
		image:   "postgres:15-alpine",
		port:    "5432/tcp",
		env:     map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		timeout: time.Minute,
	})
	return "postgres://trivia:triviapass@" + addr + "/triviadb?sslmode=disable", cleanup
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	addr, cleanup := startContainer(t, ctx, containerSpec{
		image:   "redis:7-alpine",
		port:    "6379/tcp",
		timeout: 30 * time.Second,
	})
	return "redis://" + addr, cleanup
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
