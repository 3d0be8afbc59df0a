// Package store maps the document collections the quiz core consumes onto
// domain types.
package store

import (
	"errors"
	"fmt"

	"quizrank-service/internal/docstore"
	"quizrank-service/internal/domain"
)

// Collection names.
const (
	UsersCollection     = "users"
	QuestionsCollection = "quiz_questions"
	AnswersCollection   = "user_answers"
	ResultsCollection   = "quiz_results"
)

func mapNotFound(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return err
}
