package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"quizrank-service/internal/app"
	"quizrank-service/internal/config"
	"quizrank-service/internal/docstore"
	"quizrank-service/internal/domain"
	"quizrank-service/internal/infra/memory"
	pgstore "quizrank-service/internal/infra/postgres"
	redisstore "quizrank-service/internal/infra/redis"
	"quizrank-service/internal/logger"
	"quizrank-service/internal/store"
)

// stack is the wired application for one config.
type stack struct {
	docs   docstore.Store
	engine *app.QuizEngine
	graph  *app.FriendGraph
	board  *app.Leaderboard

	closers []func()
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildStack wires the application. A read-only stack never migrates the
// schema or seeds sample questions.
func buildStack(ctx context.Context, cfg config.Config, log *logger.Logger, readOnly bool) (*stack, error) {
	s := &stack{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, func() { _ = redisClient.Close() })
	}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if !readOnly {
			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				s.Close()
				return nil, err
			}
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		s.docs = pgstore.NewDocStore(pool)
	case config.DriverRedis:
		s.docs = redisstore.NewDocStore(redisClient)
	default:
		s.docs = memory.NewDocStore()
	}

	questionStore := store.NewQuestions(s.docs, cfg.Quiz.OrderBy, log)
	if !readOnly && (cfg.Quiz.SeedSamples || cfg.Store.Driver == config.DriverMemory) {
		if err := seedQuestions(ctx, questionStore, log); err != nil {
			s.Close()
			return nil, err
		}
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var questions app.QuestionRepository
	var sessions app.SessionRepository
	if redisClient != nil {
		questions = redisstore.NewQuestionCache(redisClient, questionStore, quizTTL, log)
		sessions = redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		questions = memory.NewQuestionCache(questionStore, quizTTL)
		sessions = memory.NewSessionStore()
	}

	profiles := store.NewProfiles(s.docs)
	results := store.NewResults(s.docs, log)
	s.engine = app.NewQuizEngine(questions, store.NewAnswers(s.docs), results, sessions, log)
	s.graph = app.NewFriendGraph(profiles, cfg.Leaderboard.FanOut, log)
	s.board = app.NewLeaderboard(results, profiles, cfg.Leaderboard.FanOut, log)
	return s, nil
}

// seedQuestions writes the demo bank when the store has no questions.
func seedQuestions(ctx context.Context, questions *store.Questions, log *logger.Logger) error {
	existing, err := questions.ListQuestions(ctx)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, q := range sampleQuestions() {
		if err := questions.PutQuestion(ctx, q); err != nil {
			return fmt.Errorf("seed question %s: %w", q.ID, err)
		}
	}
	log.Info("seeded sample questions", "count", len(sampleQuestions()))
	return nil
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Text: "What is the capital of Japan?", Answers: []string{"Kyoto", "Tokyo", "Osaka", "Sapporo"}, CorrectAnswer: "Tokyo"},
		{ID: "q2", Text: "How tall is Mount Fuji?", Answers: []string{"2776 m", "3776 m", "4776 m"}, CorrectAnswer: "3776 m"},
		{ID: "q3", Text: "What is 2 + 2?", Answers: []string{"3", "4", "5"}, CorrectAnswer: "4"},
	}
}
