package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

type WSHandler struct {
	service       *app.QuizService
	defaultAmount int
	upgrader      websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, defaultAmount int) *WSHandler {
	if defaultAmount <= 0 {
		defaultAmount = 5
	}
	return &WSHandler{
		service:       service,
		defaultAmount: defaultAmount,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Option string `json:"option"`
}

type resultPayload struct {
	Result    domain.SessionResult `json:"result"`
	HighScore int                  `json:"highScore"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS runs one quiz session per connection. Every state change is pushed as
// a full snapshot; the final result follows once it has been persisted.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	amount := h.defaultAmount
	if raw := query.Get("amount"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "amount must be a number", http.StatusBadRequest)
			return
		}
		amount = n
	}
	player := query.Get("player")

	session, err := h.service.Start(r.Context(), app.StartRequest{
		Amount:     amount,
		Difficulty: query.Get("difficulty"),
		Player:     player,
	})
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	defer h.service.Close(session.ID())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("ws write error", "session", session.ID(), "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		resultSent := false
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: view}:
				case <-closeSignals:
					return
				}
				if view.State != domain.StateComplete || resultSent || view.Result == nil {
					continue
				}
				select {
				case <-session.Done():
				case <-closeSignals:
					return
				}
				resultSent = true
				best, err := h.service.HighScore(context.WithoutCancel(r.Context()), player)
				if err != nil {
					slog.Warn("could not read high score", "error", err)
				}
				select {
				case send <- outboundMessage[any]{Type: "result", Payload: resultPayload{Result: *view.Result, HighScore: best}}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.handleInbound(session.ID(), inbound); err != nil {
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			default:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleInbound(sessionID string, inbound inboundMessage) error {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid answer payload")
		}
		_, err := h.service.Select(sessionID, payload.Option)
		return err
	case "finish":
		_, err := h.service.Finish(sessionID)
		return err
	case "restart":
		return h.service.Restart(sessionID)
	default:
		return errors.New("unsupported message type")
	}
}
