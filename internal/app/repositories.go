package app

import (
	"context"

	"quizrank-service/internal/domain"
)

// QuestionRepository loads the question bank (possibly through a cache).
type QuestionRepository interface {
	ListQuestions(ctx context.Context) ([]domain.Question, error)
}

// AnswerRepository is the per-user answer record store.
type AnswerRepository interface {
	GetAnswers(ctx context.Context, userID string) (domain.AnswerRecord, error)
	RecordAnswer(ctx context.Context, userID, questionID, answer string) error
}

// ResultRepository is the per-user result store.
type ResultRepository interface {
	GetResult(ctx context.Context, userID string) (domain.QuizResult, error)
	PutResult(ctx context.Context, result domain.QuizResult) error
	ListResults(ctx context.Context) ([]domain.QuizResult, error)
}

// ProfileRepository reads user profiles and edits friend sets.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (domain.UserProfile, error)
	FindByEmail(ctx context.Context, email string) ([]domain.UserProfile, error)
	AddFriend(ctx context.Context, ownerID, targetID string) error
	RemoveFriend(ctx context.Context, ownerID, targetID string) error
}

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis).
// Load reports false when the user has no session.
type SessionRepository interface {
	Load(ctx context.Context, userID string) (*domain.QuizSession, bool, error)
	Save(ctx context.Context, session *domain.QuizSession) error
	Delete(ctx context.Context, userID string) error
}
