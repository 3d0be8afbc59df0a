package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizrank-service/internal/domain"
)

func TestQuestionCacheCaches(t *testing.T) {
	loader := &countingLoader{questions: sampleQuestions()}
	cache := NewQuestionCache(loader, time.Minute)

	if _, err := cache.ListQuestions(context.Background()); err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	qs, err := cache.ListQuestions(context.Background())
	if err != nil {
		t.Fatalf("list questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if len(qs) != 2 || qs[0].ID != "q1" {
		t.Fatalf("unexpected questions %+v", qs)
	}
}

func TestQuestionCacheExpires(t *testing.T) {
	loader := &countingLoader{questions: sampleQuestions()}
	cache := NewQuestionCache(loader, time.Minute)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	_, _ = cache.ListQuestions(context.Background())
	now = now.Add(2 * time.Minute)
	_, _ = cache.ListQuestions(context.Background())
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls)
	}
}

func TestQuestionCacheZeroTTLDisablesCaching(t *testing.T) {
	loader := &countingLoader{questions: sampleQuestions()}
	cache := NewQuestionCache(loader, 0)

	_, _ = cache.ListQuestions(context.Background())
	_, _ = cache.ListQuestions(context.Background())
	if loader.calls != 2 {
		t.Fatalf("expected no caching, loader calls %d", loader.calls)
	}
}

func TestQuestionCacheDoesNotCacheErrors(t *testing.T) {
	loader := &countingLoader{err: errors.New("boom")}
	cache := NewQuestionCache(loader, time.Minute)

	if _, err := cache.ListQuestions(context.Background()); err == nil {
		t.Fatalf("expected loader error")
	}
	loader.err = nil
	loader.questions = sampleQuestions()
	if _, err := cache.ListQuestions(context.Background()); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
}

func TestQuestionCacheReturnsCopies(t *testing.T) {
	cache := NewQuestionCache(&countingLoader{questions: sampleQuestions()}, time.Minute)
	qs, _ := cache.ListQuestions(context.Background())
	qs[0].Answers[0] = "mutated"

	again, _ := cache.ListQuestions(context.Background())
	if again[0].Answers[0] == "mutated" {
		t.Fatalf("cache leaked a shared slice")
	}
}

type countingLoader struct {
	questions []domain.Question
	err       error
	calls     int
}

func (l *countingLoader) ListQuestions(_ context.Context) ([]domain.Question, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return copyQuestions(l.questions), nil
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Text: "Capital of Japan?", Answers: []string{"Tokyo", "Osaka"}, CorrectAnswer: "Tokyo"},
		{ID: "q2", Text: "Mount Fuji height?", Answers: []string{"3776 m", "2999 m"}, CorrectAnswer: "3776 m"},
	}
}
