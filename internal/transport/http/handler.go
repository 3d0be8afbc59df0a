package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"quizrank-service/internal/app"
	"quizrank-service/internal/domain"
	"quizrank-service/internal/logger"
)

// Handler exposes the quiz, friend and leaderboard use cases over REST and WebSocket.
type Handler struct {
	engine   *app.QuizEngine
	graph    *app.FriendGraph
	board    *app.Leaderboard
	identity *Identity
	ws       *WSHandler
	log      *logger.Logger
}

func NewHandler(engine *app.QuizEngine, graph *app.FriendGraph, board *app.Leaderboard, identity *Identity, log *logger.Logger) *Handler {
	log = log.With("component", "transport.http")
	return &Handler{
		engine:   engine,
		graph:    graph,
		board:    board,
		identity: identity,
		ws:       NewWSHandler(engine, log),
		log:      log,
	}
}

// APIResponse is the envelope every REST endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(h.identity.Middleware)

		r.Get("/ws", h.ws.ServeWS)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/me", h.Me)

			r.Route("/quiz", func(r chi.Router) {
				r.Get("/", h.CurrentQuiz)
				r.Delete("/", h.AbandonQuiz)
				r.Post("/start", h.StartQuiz)
				r.Post("/answer", h.SubmitAnswer)
				r.Post("/finish", h.FinishQuiz)
			})

			r.Route("/friends", func(r chi.Router) {
				r.Get("/", h.ListFriends)
				r.Post("/", h.AddFriend)
				r.Post("/proposals", h.ProposeFriend)
				r.Get("/{friendID}/removal", h.ProposeRemoval)
				r.Delete("/{friendID}", h.RemoveFriend)
			})

			r.Get("/leaderboard", h.GetLeaderboard)
		})
	})
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type meResponse struct {
	domain.UserProfile
	Complete bool `json:"complete"`
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.graph.Profile(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, meResponse{UserProfile: profile, Complete: profile.IsComplete()})
}

func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.Start(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, view)
}

func (h *Handler) CurrentQuiz(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.Current(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, view)
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeStatus(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	outcome, err := h.engine.Submit(r.Context(), UserID(r.Context()), req.Answer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, outcome)
}

func (h *Handler) FinishQuiz(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.Finish(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, view)
}

func (h *Handler) AbandonQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Abandon(r.Context(), UserID(r.Context())); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, nil)
}

func (h *Handler) ListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.graph.ListFriends(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, friends)
}

type friendRequest struct {
	Email    string                 `json:"email"`
	Proposal *domain.FriendProposal `json:"proposal,omitempty"`
}

func (h *Handler) ProposeFriend(w http.ResponseWriter, r *http.Request) {
	var req friendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeStatus(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	proposal, err := h.graph.ProposeAdd(r.Context(), UserID(r.Context()), req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, proposal)
}

// AddFriend commits a confirmed proposal, or resolves and adds an email directly.
func (h *Handler) AddFriend(w http.ResponseWriter, r *http.Request) {
	var req friendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeStatus(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	userID := UserID(r.Context())
	if req.Proposal != nil {
		if err := h.graph.CommitAdd(r.Context(), userID, *req.Proposal); err != nil {
			h.writeError(w, err)
			return
		}
		h.writeSuccess(w, req.Proposal.Target)
		return
	}
	friend, err := h.graph.AddFriend(r.Context(), userID, req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, friend)
}

func (h *Handler) ProposeRemoval(w http.ResponseWriter, r *http.Request) {
	proposal, err := h.graph.ProposeRemove(r.Context(), UserID(r.Context()), chi.URLParam(r, "friendID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, proposal)
}

func (h *Handler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	if err := h.graph.RemoveFriend(r.Context(), UserID(r.Context()), chi.URLParam(r, "friendID")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, nil)
}

type leaderboardResponse struct {
	Scope   domain.ScopeKind          `json:"scope"`
	Entries []domain.LeaderboardEntry `json:"entries"`
	// MyRank is the caller's 1-based position, 0 when unranked.
	MyRank int `json:"myRank"`
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	scope := domain.GlobalScope()
	switch r.URL.Query().Get("scope") {
	case "", string(domain.ScopeGlobal):
	case string(domain.ScopeFriends):
		if userID == "" {
			h.writeError(w, domain.ErrNotAuthenticated)
			return
		}
		scope = domain.FriendsScope(userID)
	default:
		h.writeStatus(w, http.StatusBadRequest, errors.New("scope must be global or friends"))
		return
	}

	entries, err := h.board.Build(r.Context(), scope)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := leaderboardResponse{Scope: scope.Kind, Entries: entries}
	for i, e := range entries {
		if userID != "" && e.UserID == userID {
			resp.MyRank = i + 1
			break
		}
	}
	h.writeSuccess(w, resp)
}

func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "status", status, "error", err)
	}
	h.writeStatus(w, status, err)
}

func (h *Handler) writeStatus(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, APIResponse{Success: false, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAmbiguousOrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	case domain.IsRetryable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
