package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizrank-service/internal/app"
	"quizrank-service/internal/docstore"
	"quizrank-service/internal/domain"
	"quizrank-service/internal/infra/memory"
	"quizrank-service/internal/logger"
	"quizrank-service/internal/store"
)

var errBackend = errors.New("backend unavailable")

type fixture struct {
	docs      *memory.DocStore
	profiles  *store.Profiles
	questions *flakyQuestions
	answers   *flakyAnswers
	results   *flakyResults
	sessions  *memory.SessionStore
	engine    *app.QuizEngine
	graph     *app.FriendGraph
	board     *app.Leaderboard
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	docs := memory.NewDocStore()
	log := logger.Nop()
	f := &fixture{
		docs:      docs,
		profiles:  store.NewProfiles(docs),
		questions: &flakyQuestions{QuestionRepository: store.NewQuestions(docs, "order", log)},
		answers:   &flakyAnswers{AnswerRepository: store.NewAnswers(docs)},
		results:   &flakyResults{ResultRepository: store.NewResults(docs, log)},
		sessions:  memory.NewSessionStore(),
		now:       time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.engine = app.NewQuizEngineWithClock(f.questions, f.answers, f.results, f.sessions, log, func() time.Time { return f.now })
	f.graph = app.NewFriendGraph(f.profiles, 4, log)
	f.board = app.NewLeaderboard(f.results, f.profiles, 4, log)
	return f
}

func (f *fixture) seedQuestions(t *testing.T) {
	t.Helper()
	seed := []domain.Question{
		{ID: "q1", Text: "Capital of Japan?", Answers: []string{"Tokyo", "Kyoto", "Osaka"}, CorrectAnswer: "Tokyo"},
		{ID: "q2", Text: "Height of Mount Fuji?", Answers: []string{"3776 m", "4478 m"}, CorrectAnswer: "3776 m"},
	}
	for i, q := range seed {
		fields := map[string]any{"question": q.Text, "answers": q.Answers, "correctAnswer": q.CorrectAnswer, "order": i}
		if err := f.docs.MergeWrite(context.Background(), store.QuestionsCollection, q.ID, fields); err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}
}

func (f *fixture) seedUser(t *testing.T, id, email, first, last string, age int, friends ...string) {
	t.Helper()
	fields := map[string]any{"email": email, "firstName": first, "lastName": last}
	if age >= 0 {
		fields["age"] = age
	}
	if len(friends) > 0 {
		fields["friends"] = friends
	}
	if err := f.docs.MergeWrite(context.Background(), store.UsersCollection, id, fields); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func (f *fixture) seedResult(t *testing.T, userID string, score, total int) {
	t.Helper()
	if err := f.docs.MergeWrite(context.Background(), store.ResultsCollection, userID, map[string]any{
		"score": score, "total": total, "timestamp": f.now,
	}); err != nil {
		t.Fatalf("seed result: %v", err)
	}
}

func (f *fixture) rawDoc(t *testing.T, collection, id string) (docstore.Document, bool) {
	t.Helper()
	doc, err := f.docs.Get(context.Background(), collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return docstore.Document{}, false
	}
	if err != nil {
		t.Fatalf("get %s/%s: %v", collection, id, err)
	}
	return doc, true
}

type flakyQuestions struct {
	app.QuestionRepository
	mu   sync.Mutex
	fail bool
}

func (q *flakyQuestions) setFail(v bool) { q.mu.Lock(); q.fail = v; q.mu.Unlock() }

func (q *flakyQuestions) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	q.mu.Lock()
	fail := q.fail
	q.mu.Unlock()
	if fail {
		return nil, errBackend
	}
	return q.QuestionRepository.ListQuestions(ctx)
}

type flakyAnswers struct {
	app.AnswerRepository
	mu        sync.Mutex
	failWrite bool
}

func (a *flakyAnswers) setFailWrite(v bool) { a.mu.Lock(); a.failWrite = v; a.mu.Unlock() }

func (a *flakyAnswers) RecordAnswer(ctx context.Context, userID, questionID, answer string) error {
	a.mu.Lock()
	fail := a.failWrite
	a.mu.Unlock()
	if fail {
		return errBackend
	}
	return a.AnswerRepository.RecordAnswer(ctx, userID, questionID, answer)
}

type flakyResults struct {
	app.ResultRepository
	mu        sync.Mutex
	failWrite bool
	puts      int
}

func (r *flakyResults) setFailWrite(v bool) { r.mu.Lock(); r.failWrite = v; r.mu.Unlock() }

func (r *flakyResults) putCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.puts
}

func (r *flakyResults) PutResult(ctx context.Context, result domain.QuizResult) error {
	r.mu.Lock()
	fail := r.failWrite
	if !fail {
		r.puts++
	}
	r.mu.Unlock()
	if fail {
		return errBackend
	}
	return r.ResultRepository.PutResult(ctx, result)
}
