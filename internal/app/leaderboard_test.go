package app_test

import (
	"context"
	"errors"
	"testing"

	"quizrank-service/internal/app"
	"quizrank-service/internal/domain"
	"quizrank-service/internal/logger"
)

func TestLeaderboardGlobalAndFriends(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "u1", "ada@example.com", "Ada", "Lovelace", 36, "u2")
	f.seedUser(t, "u2", "alan@example.com", "Alan", "Turing", -1)
	f.seedUser(t, "u3", "grace@example.com", "Grace", "Hopper", 45, "u1")
	f.seedResult(t, "u1", 1, 3)
	f.seedResult(t, "u2", 2, 2)
	f.seedResult(t, "u3", 3, 4)
	f.seedResult(t, "u4", 5, 5) // no profile
	f.seedResult(t, "u5", 0, 0) // nothing presented

	global, err := f.board.Build(ctx, domain.GlobalScope())
	if err != nil {
		t.Fatalf("global: %v", err)
	}
	if len(global) != 3 {
		t.Fatalf("expected 3 entries, got %+v", global)
	}
	if global[0].UserID != "u3" || global[1].UserID != "u2" || global[2].UserID != "u1" {
		t.Fatalf("unexpected order %+v", global)
	}
	if global[2].SuccessRate != 33.33 || global[0].SuccessRate != 75 {
		t.Fatalf("unexpected success rates %+v", global)
	}
	if global[1].Age != domain.AgeUnknown || global[1].DisplayName != "Alan Turing" {
		t.Fatalf("unexpected entry %+v", global[1])
	}

	friends, err := f.board.Build(ctx, domain.FriendsScope("u1"))
	if err != nil {
		t.Fatalf("friends: %v", err)
	}
	if len(friends) != 2 || friends[0].UserID != "u2" || friends[1].UserID != "u1" {
		t.Fatalf("expected [u2 u1], got %+v", friends)
	}
	inGlobal := map[string]bool{}
	for _, e := range global {
		inGlobal[e.UserID] = true
	}
	for _, e := range friends {
		if !inGlobal[e.UserID] {
			t.Fatalf("friends entry %s missing from global", e.UserID)
		}
	}

	pos, entry, err := f.board.Rank(ctx, domain.GlobalScope(), "u1")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if pos != 3 || entry.Score != 1 {
		t.Fatalf("expected rank 3, got %d %+v", pos, entry)
	}
	if _, _, err := f.board.Rank(ctx, domain.FriendsScope("u1"), "u3"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type fixedResults struct {
	app.ResultRepository
	results []domain.QuizResult
	err     error
}

func (r fixedResults) ListResults(context.Context) ([]domain.QuizResult, error) {
	out := make([]domain.QuizResult, len(r.results))
	copy(out, r.results)
	return out, r.err
}

func TestLeaderboardTiesKeepReadOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		f.seedUser(t, id, id+"@example.com", id, "", -1)
	}
	results := fixedResults{results: []domain.QuizResult{
		{UserID: "c", Score: 1, Total: 2},
		{UserID: "a", Score: 2, Total: 2},
		{UserID: "d", Score: 1, Total: 2},
		{UserID: "b", Score: 2, Total: 2},
	}}
	board := app.NewLeaderboard(results, f.profiles, 2, logger.Nop())

	entries, err := board.Build(ctx, domain.GlobalScope())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got := []string{entries[0].UserID, entries[1].UserID, entries[2].UserID, entries[3].UserID}
	want := []string{"a", "b", "c", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestLeaderboardFetchFailure(t *testing.T) {
	f := newFixture(t)
	board := app.NewLeaderboard(fixedResults{err: errBackend}, f.profiles, 0, logger.Nop())
	if _, err := board.Build(context.Background(), domain.GlobalScope()); !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
}
