package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"quizrank-service/internal/app"
	"quizrank-service/internal/domain"
	"quizrank-service/internal/logger"
)

// WSHandler drives a quiz session over a websocket. The connection is bound
// to the user resolved by the identity middleware.
type WSHandler struct {
	engine   *app.QuizEngine
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewWSHandler(engine *app.QuizEngine, log *logger.Logger) *WSHandler {
	return &WSHandler{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type answerResult struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
	Score      int    `json:"score"`
	Answered   int    `json:"answered"`
	Total      int    `json:"total"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz engine.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, APIResponse{Success: false, Error: domain.ErrNotAuthenticated.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "user_id", userID, "error", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write failed", "user_id", userID, "error", err)
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			view, err := h.engine.Start(r.Context(), userID)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- viewMessage(view)
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			outcome, err := h.engine.Submit(r.Context(), userID, payload.Answer)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				QuestionID: outcome.QuestionID,
				Correct:    outcome.Correct,
				Score:      outcome.Session.Score,
				Answered:   outcome.Session.Answered,
				Total:      outcome.Session.Total,
			}}
			send <- viewMessage(outcome.Session)
		case "finish":
			view, err := h.engine.Finish(r.Context(), userID)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- viewMessage(view)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(send)
	<-writerDone
}

// viewMessage picks the message type that matches the session state.
func viewMessage(view domain.SessionView) outboundMessage[any] {
	switch {
	case view.AlreadyFinished:
		return outboundMessage[any]{Type: "alreadyFinished", Payload: view}
	case view.State == domain.StateCompleted:
		return outboundMessage[any]{Type: "completed", Payload: view}
	case view.Question != nil:
		return outboundMessage[any]{Type: "question", Payload: view}
	default:
		// last answer recorded, result still pending
		return outboundMessage[any]{Type: "pending", Payload: view}
	}
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{
		Message:   err.Error(),
		Retryable: domain.IsRetryable(err),
	}}
}
