package domain

import (
	"strings"
	"time"
)

// AgeUnknown is reported on leaderboard entries for profiles without an age.
const AgeUnknown = -1

// UserProfile is the read-only view of a user document. Friends holds the
// owner's outbound friend edges; they are never assumed to be mutual.
type UserProfile struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Age       *int     `json:"age,omitempty"`
	Friends   []string `json:"friends,omitempty"`
}

// IsComplete reports whether first name, last name and age are all present.
func (p UserProfile) IsComplete() bool {
	return strings.TrimSpace(p.FirstName) != "" &&
		strings.TrimSpace(p.LastName) != "" &&
		p.Age != nil
}

// DisplayName joins first and last name.
func (p UserProfile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// HasFriend reports whether targetID is in the owner's friend set.
func (p UserProfile) HasFriend(targetID string) bool {
	for _, id := range p.Friends {
		if id == targetID {
			return true
		}
	}
	return false
}

// Question is an authored quiz question. CorrectAnswer must be one of Answers.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"question"`
	Answers       []string `json:"answers"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// Validate checks the question is usable by the quiz engine.
func (q Question) Validate() error {
	if q.ID == "" {
		return ErrInvalidQuestion
	}
	for _, a := range q.Answers {
		if a == q.CorrectAnswer {
			return nil
		}
	}
	return ErrInvalidQuestion
}

// View strips the correct answer for presentation.
func (q Question) View() QuestionView {
	answers := make([]string, len(q.Answers))
	copy(answers, q.Answers)
	return QuestionView{ID: q.ID, Text: q.Text, Answers: answers}
}

// QuestionView is what a participant sees.
type QuestionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"question"`
	Answers []string `json:"answers"`
}

// AnswerRecord maps question IDs to the answer the user submitted. It only grows.
type AnswerRecord struct {
	UserID  string            `json:"userId"`
	Answers map[string]string `json:"answers"`
}

// Answered reports whether questionID was already answered.
func (r AnswerRecord) Answered(questionID string) bool {
	_, ok := r.Answers[questionID]
	return ok
}

// QuizResult is the most recent completion for a user; a new one overwrites it.
type QuizResult struct {
	UserID      string    `json:"userId"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	CompletedAt time.Time `json:"timestamp"`
}

// LeaderboardEntry is computed on every aggregation and never persisted.
type LeaderboardEntry struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	Age         int     `json:"age"`
	Score       int     `json:"score"`
	Total       int     `json:"total"`
	SuccessRate float64 `json:"successRate"`
}

// ScopeKind selects which results a leaderboard includes.
type ScopeKind string

const (
	ScopeGlobal  ScopeKind = "global"
	ScopeFriends ScopeKind = "friends"
)

// Scope is the filter applied before ranking.
type Scope struct {
	Kind   ScopeKind
	UserID string
}

// GlobalScope ranks every result.
func GlobalScope() Scope {
	return Scope{Kind: ScopeGlobal}
}

// FriendsScope ranks userID and the users in userID's friend set.
func FriendsScope(userID string) Scope {
	return Scope{Kind: ScopeFriends, UserID: userID}
}

// SessionState is the quiz engine state for one user.
type SessionState string

const (
	StateLoading    SessionState = "loading"
	StateInProgress SessionState = "in_progress"
	StateCompleted  SessionState = "completed"
)

// QuizSession is the persisted state of a user's quiz run. Questions holds the
// remaining set computed at start, in fetch order.
type QuizSession struct {
	ID              string       `json:"id"`
	UserID          string       `json:"userId"`
	State           SessionState `json:"state"`
	Questions       []Question   `json:"questions"`
	Cursor          int          `json:"cursor"`
	Score           int          `json:"score"`
	AlreadyFinished bool         `json:"alreadyFinished"`
	StartedAt       time.Time    `json:"startedAt"`
	CompletedAt     *time.Time   `json:"completedAt,omitempty"`
}

// Current returns the question awaiting an answer.
func (s *QuizSession) Current() (Question, bool) {
	if s.State != StateInProgress || s.Cursor >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.Cursor], true
}

// Total is the number of questions presented in this session.
func (s *QuizSession) Total() int {
	return len(s.Questions)
}

// Exhausted reports whether every presented question has been answered.
func (s *QuizSession) Exhausted() bool {
	return s.Cursor >= len(s.Questions)
}

// Clone returns a deep copy.
func (s *QuizSession) Clone() *QuizSession {
	out := *s
	out.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		answers := make([]string, len(q.Answers))
		copy(answers, q.Answers)
		q.Answers = answers
		out.Questions[i] = q
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// SessionView is the caller-facing snapshot of a session.
type SessionView struct {
	SessionID       string        `json:"sessionId"`
	State           SessionState  `json:"state"`
	AlreadyFinished bool          `json:"alreadyFinished"`
	Question        *QuestionView `json:"question,omitempty"`
	Answered        int           `json:"answered"`
	Total           int           `json:"total"`
	Score           int           `json:"score"`
	Result          *QuizResult   `json:"result,omitempty"`
}

// AnswerOutcome summarizes a single submission.
type AnswerOutcome struct {
	QuestionID string      `json:"questionId"`
	Correct    bool        `json:"correct"`
	Session    SessionView `json:"session"`
}

// FriendAction is the mutation a proposal describes.
type FriendAction string

const (
	FriendAdd    FriendAction = "add"
	FriendRemove FriendAction = "remove"
)

// FriendProposal is returned by the propose step and must be committed
// explicitly once the caller has confirmed it.
type FriendProposal struct {
	Action      FriendAction `json:"action"`
	OwnerID     string       `json:"ownerId"`
	Target      UserProfile  `json:"target"`
	Description string       `json:"description"`
}
