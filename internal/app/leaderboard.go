package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"quizrank-service/internal/domain"
	"quizrank-service/internal/logger"
)

// Leaderboard ranks stored results joined with profile data. Nothing it
// computes is persisted.
type Leaderboard struct {
	results  ResultRepository
	profiles ProfileRepository
	fanOut   int
	log      *logger.Logger
}

func NewLeaderboard(results ResultRepository, profiles ProfileRepository, fanOut int, log *logger.Logger) *Leaderboard {
	if fanOut <= 0 {
		fanOut = defaultFanOut
	}
	return &Leaderboard{results: results, profiles: profiles, fanOut: fanOut, log: log.With("component", "app.Leaderboard")}
}

// Build returns the scoped leaderboard ordered by score descending. Ties keep
// the order the results were read in; position i is rank i+1.
func (l *Leaderboard) Build(ctx context.Context, scope domain.Scope) ([]domain.LeaderboardEntry, error) {
	results, err := l.results.ListResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}

	if scope.Kind == domain.ScopeFriends {
		allowed, err := l.friendScope(ctx, scope.UserID)
		if err != nil {
			return nil, err
		}
		filtered := results[:0]
		for _, r := range results {
			if _, ok := allowed[r.UserID]; ok {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	scored := make([]domain.QuizResult, 0, len(results))
	for _, r := range results {
		if r.Total > 0 {
			scored = append(scored, r)
		}
	}

	entries := make([]*domain.LeaderboardEntry, len(scored))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(l.fanOut)
	for i, r := range scored {
		i, r := i, r
		grp.Go(func() error {
			profile, err := l.profiles.GetProfile(gctx, r.UserID)
			if errors.Is(err, domain.ErrNotFound) {
				l.log.Debug("dropping result without profile", "user_id", r.UserID)
				return nil
			}
			if err != nil {
				return err
			}
			entry := newEntry(r, profile)
			entries[i] = &entry
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}

	board := make([]domain.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			board = append(board, *e)
		}
	}
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Score > board[j].Score
	})
	return board, nil
}

// Rank returns userID's 1-based position in the scoped leaderboard.
func (l *Leaderboard) Rank(ctx context.Context, scope domain.Scope, userID string) (int, domain.LeaderboardEntry, error) {
	board, err := l.Build(ctx, scope)
	if err != nil {
		return 0, domain.LeaderboardEntry{}, err
	}
	for i, e := range board {
		if e.UserID == userID {
			return i + 1, e, nil
		}
	}
	return 0, domain.LeaderboardEntry{}, fmt.Errorf("%w: %s is not ranked", domain.ErrNotFound, userID)
}

// friendScope is the viewer plus the viewer's outbound friend edges.
func (l *Leaderboard) friendScope(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	if viewerID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	allowed := map[string]struct{}{viewerID: {}}
	viewer, err := l.profiles.GetProfile(ctx, viewerID)
	if errors.Is(err, domain.ErrNotFound) {
		return allowed, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	for _, id := range viewer.Friends {
		allowed[id] = struct{}{}
	}
	return allowed, nil
}

func newEntry(r domain.QuizResult, p domain.UserProfile) domain.LeaderboardEntry {
	age := domain.AgeUnknown
	if p.Age != nil {
		age = *p.Age
	}
	return domain.LeaderboardEntry{
		UserID:      r.UserID,
		DisplayName: p.DisplayName(),
		Age:         age,
		Score:       r.Score,
		Total:       r.Total,
		SuccessRate: successRate(r.Score, r.Total),
	}
}

// successRate is score/total as a percentage rounded to two decimals.
func successRate(score, total int) float64 {
	return math.Round(float64(score)/float64(total)*10000) / 100
}
