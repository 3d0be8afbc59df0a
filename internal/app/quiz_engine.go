package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizrank-service/internal/domain"
	"quizrank-service/internal/logger"
)

// QuizEngine runs one quiz session per user: it presents the questions the
// user has not answered yet, records every answer as it is submitted and
// writes the result once the last remaining question is answered.
type QuizEngine struct {
	questions QuestionRepository
	answers   AnswerRepository
	results   ResultRepository
	sessions  SessionRepository
	log       *logger.Logger
	now       func() time.Time
	newID     func() string

	locksMu sync.Mutex
	locks   map[string]*userLock
}

// userLock is dropped from the map once no caller holds or waits on it.
type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewQuizEngine(questions QuestionRepository, answers AnswerRepository, results ResultRepository, sessions SessionRepository, log *logger.Logger) *QuizEngine {
	return &QuizEngine{
		questions: questions,
		answers:   answers,
		results:   results,
		sessions:  sessions,
		log:       log.With("component", "app.QuizEngine"),
		now:       time.Now,
		newID:     uuid.NewString,
		locks:     make(map[string]*userLock),
	}
}

// NewQuizEngineWithClock is test-only for deterministic timestamps.
func NewQuizEngineWithClock(questions QuestionRepository, answers AnswerRepository, results ResultRepository, sessions SessionRepository, log *logger.Logger, now func() time.Time) *QuizEngine {
	e := NewQuizEngine(questions, answers, results, sessions, log)
	e.now = now
	return e
}

// Start computes the remaining questions for userID. An in-progress session
// is resumed as is; otherwise a new session replaces any previous one.
func (e *QuizEngine) Start(ctx context.Context, userID string) (domain.SessionView, error) {
	if userID == "" {
		return domain.SessionView{}, domain.ErrNotAuthenticated
	}
	unlock := e.lock(userID)
	defer unlock()

	if existing, ok, err := e.sessions.Load(ctx, userID); err != nil {
		return domain.SessionView{}, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	} else if ok && existing.State == domain.StateInProgress {
		return viewOf(existing), nil
	}

	session := &domain.QuizSession{
		ID:        e.newID(),
		UserID:    userID,
		State:     domain.StateLoading,
		StartedAt: e.now(),
	}
	if err := e.sessions.Save(ctx, session); err != nil {
		return domain.SessionView{}, fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}

	questions, err := e.questions.ListQuestions(ctx)
	if err != nil {
		e.log.Warn("question fetch failed", "user_id", userID, "error", err)
		return domain.SessionView{}, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	record, err := e.answers.GetAnswers(ctx, userID)
	if err != nil {
		e.log.Warn("answer record fetch failed", "user_id", userID, "error", err)
		return domain.SessionView{}, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}

	session.Questions = remaining(questions, record)
	if len(session.Questions) == 0 {
		completedAt := e.now()
		session.State = domain.StateCompleted
		session.AlreadyFinished = true
		session.CompletedAt = &completedAt
	} else {
		session.State = domain.StateInProgress
	}
	if err := e.sessions.Save(ctx, session); err != nil {
		return domain.SessionView{}, fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}

	e.log.Info("quiz session started",
		"user_id", userID,
		"session_id", session.ID,
		"remaining", len(session.Questions),
		"already_finished", session.AlreadyFinished,
	)
	return viewOf(session), nil
}

// Submit records answer for the current question, scores it by exact match and
// advances. Answering the last question completes the session and writes the result.
func (e *QuizEngine) Submit(ctx context.Context, userID, answer string) (domain.AnswerOutcome, error) {
	if userID == "" {
		return domain.AnswerOutcome{}, domain.ErrNotAuthenticated
	}
	unlock := e.lock(userID)
	defer unlock()

	session, err := e.load(ctx, userID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	question, ok := session.Current()
	if !ok {
		return domain.AnswerOutcome{}, domain.ErrInvalidState
	}

	// the answer must be durable before the session moves on
	if err := e.answers.RecordAnswer(ctx, userID, question.ID, answer); err != nil {
		e.log.Warn("answer write failed", "user_id", userID, "question_id", question.ID, "error", err)
		return domain.AnswerOutcome{}, fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}

	correct := answer == question.CorrectAnswer
	if correct {
		session.Score++
	}
	session.Cursor++

	outcome := domain.AnswerOutcome{QuestionID: question.ID, Correct: correct}
	if session.Exhausted() {
		if err := e.complete(ctx, session); err != nil {
			// answer is recorded; keep progress so Finish can retry the result write
			if saveErr := e.sessions.Save(ctx, session); saveErr != nil {
				e.log.Error("session save failed", "user_id", userID, "error", saveErr)
			}
			return domain.AnswerOutcome{}, err
		}
	}
	if err := e.sessions.Save(ctx, session); err != nil {
		return domain.AnswerOutcome{}, fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}

	outcome.Session = viewOf(session)
	return outcome, nil
}

// Finish retries the result write for a session whose last answer was
// recorded but whose result was not. Completed sessions are returned unchanged.
func (e *QuizEngine) Finish(ctx context.Context, userID string) (domain.SessionView, error) {
	if userID == "" {
		return domain.SessionView{}, domain.ErrNotAuthenticated
	}
	unlock := e.lock(userID)
	defer unlock()

	session, err := e.load(ctx, userID)
	if err != nil {
		return domain.SessionView{}, err
	}
	switch {
	case session.State == domain.StateCompleted:
		return viewOf(session), nil
	case session.State != domain.StateInProgress || !session.Exhausted():
		return domain.SessionView{}, domain.ErrInvalidState
	}

	if err := e.complete(ctx, session); err != nil {
		return domain.SessionView{}, err
	}
	if err := e.sessions.Save(ctx, session); err != nil {
		return domain.SessionView{}, fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}
	return viewOf(session), nil
}

// Current returns the view of userID's session.
func (e *QuizEngine) Current(ctx context.Context, userID string) (domain.SessionView, error) {
	if userID == "" {
		return domain.SessionView{}, domain.ErrNotAuthenticated
	}
	session, err := e.load(ctx, userID)
	if err != nil {
		return domain.SessionView{}, err
	}
	return viewOf(session), nil
}

// Abandon drops the session. Answers already recorded stay recorded.
func (e *QuizEngine) Abandon(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrNotAuthenticated
	}
	unlock := e.lock(userID)
	defer unlock()

	if err := e.sessions.Delete(ctx, userID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}
	return nil
}

// complete writes the result and marks the session completed. On failure the
// session is left untouched.
func (e *QuizEngine) complete(ctx context.Context, session *domain.QuizSession) error {
	completedAt := e.now()
	result := domain.QuizResult{
		UserID:      session.UserID,
		Score:       session.Score,
		Total:       session.Total(),
		CompletedAt: completedAt,
	}
	if err := e.results.PutResult(ctx, result); err != nil {
		e.log.Warn("result write failed", "user_id", session.UserID, "session_id", session.ID, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}
	session.State = domain.StateCompleted
	session.CompletedAt = &completedAt
	e.log.Info("quiz completed",
		"user_id", session.UserID,
		"session_id", session.ID,
		"score", result.Score,
		"total", result.Total,
	)
	return nil
}

func (e *QuizEngine) load(ctx context.Context, userID string) (*domain.QuizSession, error) {
	session, ok, err := e.sessions.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// lock serializes operations on one user's session within this process.
func (e *QuizEngine) lock(userID string) func() {
	e.locksMu.Lock()
	l, ok := e.locks[userID]
	if !ok {
		l = &userLock{}
		e.locks[userID] = l
	}
	l.refs++
	e.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, userID)
		}
		e.locksMu.Unlock()
	}
}

// remaining keeps the fetched questions the record has no answer for, in fetch order.
func remaining(questions []domain.Question, record domain.AnswerRecord) []domain.Question {
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if !record.Answered(q.ID) {
			out = append(out, q)
		}
	}
	return out
}

func viewOf(session *domain.QuizSession) domain.SessionView {
	view := domain.SessionView{
		SessionID:       session.ID,
		State:           session.State,
		AlreadyFinished: session.AlreadyFinished,
		Answered:        session.Cursor,
		Total:           session.Total(),
		Score:           session.Score,
	}
	if q, ok := session.Current(); ok {
		qv := q.View()
		view.Question = &qv
	}
	if session.State == domain.StateCompleted && !session.AlreadyFinished && session.CompletedAt != nil {
		view.Result = &domain.QuizResult{
			UserID:      session.UserID,
			Score:       session.Score,
			Total:       session.Total(),
			CompletedAt: *session.CompletedAt,
		}
	}
	return view
}
