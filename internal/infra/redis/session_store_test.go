package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quizrank-service/internal/domain"
)

func TestSessionStoreRoundTripsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewSessionStore(newClient(mr), time.Minute)

	session := &domain.QuizSession{
		ID:        "s1",
		UserID:    "u1",
		State:     domain.StateInProgress,
		Questions: sampleQuestions(),
		Cursor:    1,
		Score:     1,
	}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("quiz:session:u1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("quiz:session:u1"); ttl != time.Minute {
		t.Fatalf("expected ttl of one minute, got %v", ttl)
	}

	loaded, ok, err := store.Load(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded.Cursor != 1 || loaded.Score != 1 || len(loaded.Questions) != 2 {
		t.Fatalf("unexpected session %+v", loaded)
	}
	if q, ok := loaded.Current(); !ok || q.ID != "q2" {
		t.Fatalf("expected q2 current, got %+v ok=%v", q, ok)
	}

	if err := store.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("quiz:session:u1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok, _ := store.Load(ctx, "u1"); ok {
		t.Fatalf("expected no session after delete")
	}
}
