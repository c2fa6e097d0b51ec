package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"trivia-quiz-service/internal/app"
)

// NewRouter wires the health check, the WebSocket quiz screen and the JSON API.
func NewRouter(service *app.QuizService, defaultAmount int) http.Handler {
	ws := NewWSHandler(service, defaultAmount)
	api := NewAPIHandler(service)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)
	r.Route("/api", func(sub chi.Router) {
		sub.Use(middleware.Logger)
		api.Routes(sub)
	})
	return r
}
