package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"quizrank-service/internal/config"
	"quizrank-service/internal/docstore"
	"quizrank-service/internal/domain"
	"quizrank-service/internal/logger"
	"quizrank-service/internal/store"
)

func TestPrintLeaderboard(t *testing.T) {
	var buf bytes.Buffer
	err := printLeaderboard(&buf, []domain.LeaderboardEntry{
		{UserID: "u1", DisplayName: "Ada Lovelace", Age: 36, Score: 2, Total: 2, SuccessRate: 100},
		{UserID: "u2", DisplayName: "Alan Turing", Age: domain.AgeUnknown, Score: 1, Total: 3, SuccessRate: 33.33},
	})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", buf.String())
	}
	if !strings.Contains(lines[1], "Ada Lovelace") || !strings.Contains(lines[1], "100.00%") {
		t.Fatalf("unexpected first row %q", lines[1])
	}
	if !strings.Contains(lines[2], "N/A") || !strings.Contains(lines[2], "33.33%") || !strings.HasPrefix(lines[2], "2") {
		t.Fatalf("unexpected second row %q", lines[2])
	}
}

func TestReadOnlyStackDoesNotSeed(t *testing.T) {
	ctx := context.Background()
	var cfg config.Config
	cfg.Store.Driver = config.DriverMemory
	cfg.Quiz.SeedSamples = true
	cfg.Leaderboard.FanOut = 4

	for _, tc := range []struct {
		name     string
		readOnly bool
		seeded   bool
	}{
		{name: "serve", readOnly: false, seeded: true},
		{name: "read only", readOnly: true, seeded: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := buildStack(ctx, cfg, logger.Nop(), tc.readOnly)
			if err != nil {
				t.Fatalf("build stack: %v", err)
			}
			defer s.Close()

			docs, err := s.docs.Query(ctx, store.QuestionsCollection, docstore.Query{})
			if err != nil {
				t.Fatalf("query questions: %v", err)
			}
			if got := len(docs) > 0; got != tc.seeded {
				t.Fatalf("expected seeded=%v, got %d questions", tc.seeded, len(docs))
			}

			entries, err := s.board.Build(ctx, domain.GlobalScope())
			if err != nil {
				t.Fatalf("build leaderboard: %v", err)
			}
			if len(entries) != 0 {
				t.Fatalf("expected empty leaderboard, got %+v", entries)
			}
		})
	}
}
