package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/clock"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/infra/memory"
	redisstore "trivia-quiz-service/internal/infra/redis"
	transport "trivia-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	redisClient := newRedisClient(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	source, closeSource, err := newQuestionSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	kv, closeKV, err := newKVStore(cfg, redisClient)
	if err != nil {
		return err
	}
	defer closeKV()

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, config.Duration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		sessions = memory.NewSessionStore()
	}

	recorder := app.NewRecorder(kv, cfg.Quiz.HistoryLimit)
	service := app.NewQuizService(sessions, source, recorder, clock.Real{}, sessionConfig(cfg))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, cfg.Quiz.DefaultAmount),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("starting trivia service", "port", finalPort, "storage", cfg.Storage.Driver, "redis", redisClient != nil, "postgres", cfg.Postgres.URL != "")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
