package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"trivia-quiz-service/internal/domain"
)

// Storage keys, kept compatible with the browser build's localStorage layout.
const (
	KeyLatestResult = "latestResult"
	KeyHistory      = "quizHistory"
	KeyHighScore    = "quizHighScore"

	DefaultHistoryLimit = 50
)

// KVStore is the durable key-value port. Get returns domain.ErrKeyNotFound for
// missing keys. Each Set is atomic for its key.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Recorder scores nothing itself; it persists finished sessions and serves the
// results, history and high-score reads.
type Recorder struct {
	store  KVStore
	limit  int
	prefix string
	mu     *sync.Mutex
}

func NewRecorder(store KVStore, historyLimit int) *Recorder {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Recorder{store: store, limit: historyLimit, mu: &sync.Mutex{}}
}

// ForPlayer returns a recorder whose keys are namespaced to player. An empty
// name keeps the unscoped keys.
func (r *Recorder) ForPlayer(player string) *Recorder {
	player = strings.TrimSpace(player)
	if player == "" {
		return r
	}
	scoped := *r
	scoped.prefix = "player:" + player + ":"
	return &scoped
}

// Record writes the latest result, prepends it to the history and raises the
// high score. The writes are independent: a failing one is logged and the
// rest still run. The joined error is returned for callers that care.
func (r *Recorder) Record(ctx context.Context, result domain.SessionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if err := r.setJSON(ctx, KeyLatestResult, result); err != nil {
		slog.Error("could not save latest result", "error", err)
		errs = append(errs, err)
	}
	if err := r.prependHistoryLocked(ctx, result); err != nil {
		slog.Error("could not save history", "error", err)
		errs = append(errs, err)
	}
	if err := r.raiseHighScoreLocked(ctx, result.Score); err != nil {
		slog.Error("could not save high score", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Latest returns the most recently recorded or viewed result.
func (r *Recorder) Latest(ctx context.Context) (domain.SessionResult, error) {
	var result domain.SessionResult
	raw, err := r.store.Get(ctx, r.key(KeyLatestResult))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return result, domain.ErrResultNotFound
	}
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("decode latest result: %w", err)
	}
	return result, nil
}

// History returns stored attempts, newest first.
func (r *Recorder) History(ctx context.Context) ([]domain.SessionResult, error) {
	return r.history(ctx)
}

// ViewHistoryEntry makes history entry index the latest result again and
// returns it. Viewing the same entry twice yields the same content.
func (r *Recorder) ViewHistoryEntry(ctx context.Context, index int) (domain.SessionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history, err := r.history(ctx)
	if err != nil {
		return domain.SessionResult{}, err
	}
	if index < 0 || index >= len(history) {
		return domain.SessionResult{}, fmt.Errorf("%w: %d", domain.ErrHistoryEntryNotFound, index)
	}
	entry := history[index]
	if err := r.setJSON(ctx, KeyLatestResult, entry); err != nil {
		return domain.SessionResult{}, err
	}
	return entry, nil
}

func (r *Recorder) ClearHistory(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Delete(ctx, r.key(KeyHistory))
}

// HighScore returns the stored best score, 0 when none was recorded.
func (r *Recorder) HighScore(ctx context.Context) (int, error) {
	raw, err := r.store.Get(ctx, r.key(KeyHighScore))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	best, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		slog.Warn("ignoring unreadable high score", "value", string(raw))
		return 0, nil
	}
	return best, nil
}

// ClearHighScore resets the high score to 0.
func (r *Recorder) ClearHighScore(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Delete(ctx, r.key(KeyHighScore))
}

func (r *Recorder) prependHistoryLocked(ctx context.Context, result domain.SessionResult) error {
	history, err := r.history(ctx)
	if err != nil {
		return err
	}
	history = append([]domain.SessionResult{result}, history...)
	if len(history) > r.limit {
		history = history[:r.limit]
	}
	return r.setJSON(ctx, KeyHistory, history)
}

func (r *Recorder) raiseHighScoreLocked(ctx context.Context, score int) error {
	best, err := r.HighScore(ctx)
	if err != nil {
		return err
	}
	if score <= best {
		return nil
	}
	if err := r.store.Set(ctx, r.key(KeyHighScore), []byte(strconv.Itoa(score))); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrStorageFailure, KeyHighScore, err)
	}
	return nil
}

func (r *Recorder) history(ctx context.Context) ([]domain.SessionResult, error) {
	raw, err := r.store.Get(ctx, r.key(KeyHistory))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return []domain.SessionResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	var history []domain.SessionResult
	if err := json.Unmarshal(raw, &history); err != nil {
		slog.Warn("discarding unreadable history", "error", err)
		return []domain.SessionResult{}, nil
	}
	return history, nil
}

func (r *Recorder) setJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, r.key(key), data); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrStorageFailure, key, err)
	}
	return nil
}

func (r *Recorder) key(name string) string {
	return r.prefix + name
}
