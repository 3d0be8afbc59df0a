package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"quizrank-service/internal/domain"
	"quizrank-service/internal/logger"
)

const defaultFanOut = 8

// FriendGraph edits and resolves a user's outbound friend edges. Edges are
// directed: adding B to A's set says nothing about B's set.
type FriendGraph struct {
	profiles ProfileRepository
	fanOut   int
	log      *logger.Logger
}

func NewFriendGraph(profiles ProfileRepository, fanOut int, log *logger.Logger) *FriendGraph {
	if fanOut <= 0 {
		fanOut = defaultFanOut
	}
	return &FriendGraph{profiles: profiles, fanOut: fanOut, log: log.With("component", "app.FriendGraph")}
}

// Profile returns the caller's own profile.
func (g *FriendGraph) Profile(ctx context.Context, userID string) (domain.UserProfile, error) {
	if userID == "" {
		return domain.UserProfile{}, domain.ErrNotAuthenticated
	}
	profile, err := g.profiles.GetProfile(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.UserProfile{}, err
	}
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	return profile, nil
}

// ProposeAdd resolves email to exactly one profile and describes the edge
// that CommitAdd would create. Nothing is written.
func (g *FriendGraph) ProposeAdd(ctx context.Context, ownerID, email string) (domain.FriendProposal, error) {
	if ownerID == "" {
		return domain.FriendProposal{}, domain.ErrNotAuthenticated
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.FriendProposal{}, fmt.Errorf("%w: empty email", domain.ErrAmbiguousOrInvalid)
	}

	matches, err := g.profiles.FindByEmail(ctx, email)
	if err != nil {
		return domain.FriendProposal{}, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	switch len(matches) {
	case 0:
		return domain.FriendProposal{}, fmt.Errorf("%w: no user with email %q", domain.ErrNotFound, email)
	case 1:
	default:
		return domain.FriendProposal{}, fmt.Errorf("%w: %d users share email %q", domain.ErrAmbiguousOrInvalid, len(matches), email)
	}

	target := matches[0]
	if target.ID == ownerID {
		return domain.FriendProposal{}, fmt.Errorf("%w: cannot add yourself", domain.ErrAmbiguousOrInvalid)
	}
	return domain.FriendProposal{
		Action:      domain.FriendAdd,
		OwnerID:     ownerID,
		Target:      target,
		Description: fmt.Sprintf("Add %s to your friends?", describe(target)),
	}, nil
}

// CommitAdd appends the proposed target with set-union semantics. The
// proposal comes back from the caller, so its email is resolved again and
// must still name exactly the proposed profile.
func (g *FriendGraph) CommitAdd(ctx context.Context, ownerID string, proposal domain.FriendProposal) error {
	if err := checkProposal(ownerID, proposal, domain.FriendAdd); err != nil {
		return err
	}
	resolved, err := g.ProposeAdd(ctx, ownerID, proposal.Target.Email)
	if err != nil {
		return err
	}
	if resolved.Target.ID != proposal.Target.ID {
		return fmt.Errorf("%w: proposal target does not match %q", domain.ErrAmbiguousOrInvalid, proposal.Target.Email)
	}
	return g.addEdge(ctx, ownerID, resolved.Target.ID)
}

// AddFriend proposes and commits in one step, for callers that confirmed up front.
func (g *FriendGraph) AddFriend(ctx context.Context, ownerID, email string) (domain.UserProfile, error) {
	proposal, err := g.ProposeAdd(ctx, ownerID, email)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if err := g.addEdge(ctx, ownerID, proposal.Target.ID); err != nil {
		return domain.UserProfile{}, err
	}
	return proposal.Target, nil
}

func (g *FriendGraph) addEdge(ctx context.Context, ownerID, targetID string) error {
	if err := g.profiles.AddFriend(ctx, ownerID, targetID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}
	g.log.Info("friend added", "owner_id", ownerID, "friend_id", targetID)
	return nil
}

// ProposeRemove describes removing targetID. The target profile is looked up
// for the description only; a dangling edge can still be removed.
func (g *FriendGraph) ProposeRemove(ctx context.Context, ownerID, targetID string) (domain.FriendProposal, error) {
	if ownerID == "" {
		return domain.FriendProposal{}, domain.ErrNotAuthenticated
	}
	if targetID == "" {
		return domain.FriendProposal{}, fmt.Errorf("%w: empty friend id", domain.ErrAmbiguousOrInvalid)
	}

	target, err := g.profiles.GetProfile(ctx, targetID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		target = domain.UserProfile{ID: targetID}
	case err != nil:
		return domain.FriendProposal{}, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	return domain.FriendProposal{
		Action:      domain.FriendRemove,
		OwnerID:     ownerID,
		Target:      target,
		Description: fmt.Sprintf("Remove %s from your friends?", describe(target)),
	}, nil
}

// CommitRemove removes the proposed target. Removing an absent edge succeeds.
func (g *FriendGraph) CommitRemove(ctx context.Context, ownerID string, proposal domain.FriendProposal) error {
	if err := checkProposal(ownerID, proposal, domain.FriendRemove); err != nil {
		return err
	}
	if err := g.profiles.RemoveFriend(ctx, ownerID, proposal.Target.ID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}
	g.log.Info("friend removed", "owner_id", ownerID, "friend_id", proposal.Target.ID)
	return nil
}

// RemoveFriend removes targetID without a separate confirmation step.
func (g *FriendGraph) RemoveFriend(ctx context.Context, ownerID, targetID string) error {
	if ownerID == "" {
		return domain.ErrNotAuthenticated
	}
	if targetID == "" {
		return fmt.Errorf("%w: empty friend id", domain.ErrAmbiguousOrInvalid)
	}
	return g.CommitRemove(ctx, ownerID, domain.FriendProposal{
		Action:  domain.FriendRemove,
		OwnerID: ownerID,
		Target:  domain.UserProfile{ID: targetID},
	})
}

// ListFriends resolves the owner's friend set to profiles in edge order.
// Targets without a profile are dropped; a missing owner has no friends.
func (g *FriendGraph) ListFriends(ctx context.Context, ownerID string) ([]domain.UserProfile, error) {
	if ownerID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	owner, err := g.profiles.GetProfile(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.UserProfile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}

	found := make([]*domain.UserProfile, len(owner.Friends))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.fanOut)
	for i, friendID := range owner.Friends {
		i, friendID := i, friendID
		grp.Go(func() error {
			profile, err := g.profiles.GetProfile(gctx, friendID)
			if errors.Is(err, domain.ErrNotFound) {
				g.log.Debug("dropping dangling friend edge", "owner_id", ownerID, "friend_id", friendID)
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = &profile
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}

	friends := make([]domain.UserProfile, 0, len(found))
	for _, p := range found {
		if p != nil {
			friends = append(friends, *p)
		}
	}
	return friends, nil
}

func checkProposal(ownerID string, proposal domain.FriendProposal, action domain.FriendAction) error {
	if ownerID == "" {
		return domain.ErrNotAuthenticated
	}
	if proposal.OwnerID != ownerID || proposal.Action != action || proposal.Target.ID == "" {
		return fmt.Errorf("%w: proposal does not match request", domain.ErrAmbiguousOrInvalid)
	}
	if action == domain.FriendAdd && proposal.Target.ID == ownerID {
		return fmt.Errorf("%w: cannot add yourself", domain.ErrAmbiguousOrInvalid)
	}
	return nil
}

func describe(p domain.UserProfile) string {
	name := p.DisplayName()
	switch {
	case name != "" && p.Email != "":
		return fmt.Sprintf("%s (%s)", name, p.Email)
	case p.Email != "":
		return p.Email
	case name != "":
		return name
	default:
		return p.ID
	}
}
