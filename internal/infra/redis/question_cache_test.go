package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizrank-service/internal/domain"
	"quizrank-service/internal/logger"
)

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{questions: sampleQuestions()}
	cache := NewQuestionCache(newClient(mr), loader, time.Minute, logger.Nop())

	if _, err := cache.ListQuestions(context.Background()); err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:questions") {
		t.Fatalf("expected question bank cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	qs, err := cache.ListQuestions(context.Background())
	if err != nil {
		t.Fatalf("list questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(qs) != 2 || qs[1].CorrectAnswer != "3776 m" {
		t.Fatalf("cached questions lost fields: %+v", qs)
	}

	if err := cache.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = cache.ListQuestions(context.Background())
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestQuestionCacheZeroTTLSkipsRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{questions: sampleQuestions()}
	cache := NewQuestionCache(newClient(mr), loader, 0, logger.Nop())

	_, _ = cache.ListQuestions(context.Background())
	_, _ = cache.ListQuestions(context.Background())
	if loader.calls != 2 {
		t.Fatalf("expected no caching, loader calls=%d", loader.calls)
	}
	if mr.Exists("quiz:questions") {
		t.Fatalf("expected nothing written to redis")
	}
}

type countingLoader struct {
	questions []domain.Question
	calls     int
}

func (l *countingLoader) ListQuestions(_ context.Context) ([]domain.Question, error) {
	l.calls++
	return l.questions, nil
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Text: "Capital of Japan?", Answers: []string{"Tokyo", "Osaka"}, CorrectAnswer: "Tokyo"},
		{ID: "q2", Text: "Mount Fuji height?", Answers: []string{"3776 m", "2999 m"}, CorrectAnswer: "3776 m"},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
