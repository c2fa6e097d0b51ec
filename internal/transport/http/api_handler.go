package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// APIHandler serves the results, history and high-score screens as JSON.
type APIHandler struct {
	service *app.QuizService
}

func NewAPIHandler(service *app.QuizService) *APIHandler {
	return &APIHandler{service: service}
}

// Routes registers the /api endpoints. Every endpoint takes ?player=.
func (h *APIHandler) Routes(r chi.Router) {
	r.Get("/results/latest", h.handleLatest)
	r.Get("/history", h.handleHistory)
	r.Delete("/history", h.handleClearHistory)
	r.Post("/history/{index}/view", h.handleViewHistory)
	r.Get("/highscore", h.handleHighScore)
	r.Delete("/highscore", h.handleClearHighScore)
}

type highScoreResponse struct {
	HighScore int `json:"highScore"`
}

func (h *APIHandler) handleLatest(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Latest(r.Context(), player(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.History(r.Context(), player(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *APIHandler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearHistory(r.Context(), player(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) handleViewHistory(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid history index", http.StatusBadRequest)
		return
	}
	result, err := h.service.ViewHistoryEntry(r.Context(), player(r), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handleHighScore(w http.ResponseWriter, r *http.Request) {
	best, err := h.service.HighScore(r.Context(), player(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, highScoreResponse{HighScore: best})
}

func (h *APIHandler) handleClearHighScore(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearHighScore(r.Context(), player(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func player(r *http.Request) string {
	return r.URL.Query().Get("player")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrResultNotFound),
		errors.Is(err, domain.ErrHistoryEntryNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidDifficulty):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
