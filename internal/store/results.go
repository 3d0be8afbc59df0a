package store

import (
	"context"
	"fmt"
	"time"

	"quizrank-service/internal/docstore"
	"quizrank-service/internal/domain"
	"quizrank-service/internal/logger"
)

// Results is the result store: one document per user, overwritten on each completion.
type Results struct {
	docs docstore.Store
	log  *logger.Logger
}

func NewResults(docs docstore.Store, log *logger.Logger) *Results {
	return &Results{docs: docs, log: log.With("component", "store.Results")}
}

type resultDoc struct {
	Score     *int      `json:"score"`
	Total     *int      `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

func (r *Results) GetResult(ctx context.Context, userID string) (domain.QuizResult, error) {
	doc, err := r.docs.Get(ctx, ResultsCollection, userID)
	if err != nil {
		return domain.QuizResult{}, mapNotFound(err)
	}
	result, ok, err := decodeResult(doc)
	if err != nil {
		return domain.QuizResult{}, err
	}
	if !ok {
		return domain.QuizResult{}, fmt.Errorf("%w: result %s has no score", domain.ErrNotFound, userID)
	}
	return result, nil
}

// PutResult replaces score, total and timestamp in a single merge write.
func (r *Results) PutResult(ctx context.Context, result domain.QuizResult) error {
	return r.docs.MergeWrite(ctx, ResultsCollection, result.UserID, map[string]any{
		"score":     result.Score,
		"total":     result.Total,
		"timestamp": result.CompletedAt.UTC(),
	})
}

// ListResults skips documents without both score and total, and documents
// that do not decode; one bad document never hides the others.
func (r *Results) ListResults(ctx context.Context) ([]domain.QuizResult, error) {
	docs, err := r.docs.Query(ctx, ResultsCollection, docstore.Query{})
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuizResult, 0, len(docs))
	for _, doc := range docs {
		result, ok, err := decodeResult(doc)
		if err != nil {
			r.log.Warn("skipping malformed result", "user_id", doc.ID, "error", err)
			continue
		}
		if ok {
			out = append(out, result)
		}
	}
	return out, nil
}

func decodeResult(doc docstore.Document) (domain.QuizResult, bool, error) {
	var raw resultDoc
	if err := docstore.Decode(doc, &raw); err != nil {
		return domain.QuizResult{}, false, fmt.Errorf("result %s: %w", doc.ID, err)
	}
	if raw.Score == nil || raw.Total == nil {
		return domain.QuizResult{}, false, nil
	}
	return domain.QuizResult{
		UserID:      doc.ID,
		Score:       *raw.Score,
		Total:       *raw.Total,
		CompletedAt: raw.Timestamp,
	}, true, nil
}
