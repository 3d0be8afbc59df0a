package redis

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"quizrank-service/internal/docstore"
)

func TestDocStoreMergeWrite(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewDocStore(newClient(mr))

	if err := store.MergeWrite(ctx, "user_answers", "u1", map[string]any{"q1": "A"}); err != nil {
		t.Fatalf("merge q1: %v", err)
	}
	if err := store.MergeWrite(ctx, "user_answers", "u1", map[string]any{"q2": "B"}); err != nil {
		t.Fatalf("merge q2: %v", err)
	}
	// replaying the same answer is a no-op
	if err := store.MergeWrite(ctx, "user_answers", "u1", map[string]any{"q2": "B"}); err != nil {
		t.Fatalf("merge q2 replay: %v", err)
	}

	doc, err := store.Get(ctx, "user_answers", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(doc.Fields) != 2 || doc.Fields["q1"] != "A" || doc.Fields["q2"] != "B" {
		t.Fatalf("unexpected answers %+v", doc.Fields)
	}
	if !mr.Exists("doc:user_answers:u1") {
		t.Fatalf("expected document key")
	}
	if ok, _ := mr.SIsMember("docs:user_answers", "u1"); !ok {
		t.Fatalf("expected collection index membership")
	}
}

func TestDocStoreFriendSetOperators(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewDocStore(newClient(mr))
	_ = store.MergeWrite(ctx, "users", "u1", map[string]any{"email": "a@b.c"})
	_ = store.MergeWrite(ctx, "users", "u1", map[string]any{"friends": docstore.ArrayUnion("u2")})
	_ = store.MergeWrite(ctx, "users", "u1", map[string]any{"friends": docstore.ArrayUnion("u2", "u3")})
	_ = store.MergeWrite(ctx, "users", "u1", map[string]any{"friends": docstore.ArrayRemove("u3")})

	doc, err := store.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	friends := doc.Fields["friends"].([]any)
	if len(friends) != 1 || friends[0] != "u2" {
		t.Fatalf("expected [u2], got %v", friends)
	}
	if doc.Fields["email"] != "a@b.c" {
		t.Fatalf("email lost in merge")
	}
}

func TestDocStoreQueryAndDelete(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewDocStore(newClient(mr))
	_ = store.MergeWrite(ctx, "users", "u1", map[string]any{"email": "dup@x.io", "order": 2})
	_ = store.MergeWrite(ctx, "users", "u2", map[string]any{"email": "dup@x.io", "order": 1})
	_ = store.MergeWrite(ctx, "users", "u3", map[string]any{"email": "solo@x.io", "order": 3})

	docs, err := store.Query(ctx, "users", docstore.Query{Field: "email", Value: "dup@x.io", OrderBy: "order"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "u2" || docs[1].ID != "u1" {
		t.Fatalf("unexpected query result %+v", docs)
	}

	if err := store.Delete(ctx, "users", "u2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "users", "u2"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	all, err := store.Query(ctx, "users", docstore.Query{})
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(all))
	}

	empty, err := store.Query(ctx, "quiz_results", docstore.Query{})
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty collection, got %v %v", empty, err)
	}
}
