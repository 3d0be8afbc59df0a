package store

import (
	"context"
	"fmt"

	"quizrank-service/internal/docstore"
	"quizrank-service/internal/domain"
	"quizrank-service/internal/logger"
)

// Questions reads the question bank.
type Questions struct {
	docs    docstore.Store
	orderBy string
	log     *logger.Logger
}

// NewQuestions reads in store order unless orderBy names a document field.
func NewQuestions(docs docstore.Store, orderBy string, log *logger.Logger) *Questions {
	return &Questions{docs: docs, orderBy: orderBy, log: log.With("component", "store.Questions")}
}

// ListQuestions drops questions whose correct answer is not one of the candidates.
func (q *Questions) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	docs, err := q.docs.Query(ctx, QuestionsCollection, docstore.Query{OrderBy: q.orderBy})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Question, 0, len(docs))
	for _, doc := range docs {
		var question domain.Question
		if err := docstore.Decode(doc, &question); err != nil {
			return nil, fmt.Errorf("question %s: %w", doc.ID, err)
		}
		question.ID = doc.ID
		if err := question.Validate(); err != nil {
			q.log.Warn("skipping invalid question", "question_id", doc.ID, "error", err)
			continue
		}
		out = append(out, question)
	}
	return out, nil
}

// PutQuestion writes a question document. Used to seed demo data and tests.
func (q *Questions) PutQuestion(ctx context.Context, question domain.Question) error {
	fields, err := docstore.Encode(question)
	if err != nil {
		return err
	}
	delete(fields, "id")
	return q.docs.MergeWrite(ctx, QuestionsCollection, question.ID, fields)
}
