package store

import (
	"context"
	"errors"
	"fmt"

	"quizrank-service/internal/docstore"
	"quizrank-service/internal/domain"
)

// Answers is the answer record store: user_answers/{userID} maps question IDs
// to submitted answers and only ever grows.
type Answers struct {
	docs docstore.Store
}

func NewAnswers(docs docstore.Store) *Answers {
	return &Answers{docs: docs}
}

// GetAnswers returns an empty record for users who never answered.
func (a *Answers) GetAnswers(ctx context.Context, userID string) (domain.AnswerRecord, error) {
	record := domain.AnswerRecord{UserID: userID, Answers: map[string]string{}}
	doc, err := a.docs.Get(ctx, AnswersCollection, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return record, nil
	}
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	for questionID, v := range doc.Fields {
		switch answer := v.(type) {
		case string:
			record.Answers[questionID] = answer
		default:
			record.Answers[questionID] = fmt.Sprint(answer)
		}
	}
	return record, nil
}

// RecordAnswer merge-writes one question's answer. Replaying it is harmless.
func (a *Answers) RecordAnswer(ctx context.Context, userID, questionID, answer string) error {
	return a.docs.MergeWrite(ctx, AnswersCollection, userID, map[string]any{questionID: answer})
}
