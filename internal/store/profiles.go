package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"quizrank-service/internal/docstore"
	"quizrank-service/internal/domain"
)

// Profiles reads user documents and maintains the friend set on them.
type Profiles struct {
	docs docstore.Store
}

func NewProfiles(docs docstore.Store) *Profiles {
	return &Profiles{docs: docs}
}

type profileDoc struct {
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Age       any      `json:"age"`
	Friends   []string `json:"friends"`
}

// GetProfile returns domain.ErrNotFound when the user document is absent.
func (p *Profiles) GetProfile(ctx context.Context, userID string) (domain.UserProfile, error) {
	doc, err := p.docs.Get(ctx, UsersCollection, userID)
	if err != nil {
		return domain.UserProfile{}, mapNotFound(err)
	}
	return decodeProfile(doc)
}

// FindByEmail returns every profile whose email equals email.
func (p *Profiles) FindByEmail(ctx context.Context, email string) ([]domain.UserProfile, error) {
	docs, err := p.docs.Query(ctx, UsersCollection, docstore.Query{Field: "email", Value: email})
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserProfile, 0, len(docs))
	for _, doc := range docs {
		profile, err := decodeProfile(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, profile)
	}
	return out, nil
}

func (p *Profiles) AddFriend(ctx context.Context, ownerID, targetID string) error {
	return p.docs.MergeWrite(ctx, UsersCollection, ownerID, map[string]any{
		"friends": docstore.ArrayUnion(targetID),
	})
}

func (p *Profiles) RemoveFriend(ctx context.Context, ownerID, targetID string) error {
	return p.docs.MergeWrite(ctx, UsersCollection, ownerID, map[string]any{
		"friends": docstore.ArrayRemove(targetID),
	})
}

func decodeProfile(doc docstore.Document) (domain.UserProfile, error) {
	var raw profileDoc
	if err := docstore.Decode(doc, &raw); err != nil {
		return domain.UserProfile{}, fmt.Errorf("profile %s: %w", doc.ID, err)
	}
	return domain.UserProfile{
		ID:        doc.ID,
		Email:     raw.Email,
		FirstName: raw.FirstName,
		LastName:  raw.LastName,
		Age:       parseAge(raw.Age),
		Friends:   raw.Friends,
	}, nil
}

// parseAge accepts numbers and numeric strings; profile editing has stored both.
func parseAge(v any) *int {
	switch age := v.(type) {
	case float64:
		n := int(age)
		return &n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(age))
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}
