package service

import (
	"context"

	"awards-voting-backend/models"
	"awards-voting-backend/repository"
)

// MembershipGate answers whether a voter currently holds an active membership.
type MembershipGate interface {
	IsActiveMember(ctx context.Context, voterID string) (bool, error)
}

// ProfileMembershipGate reads membership status from the profiles directory.
type ProfileMembershipGate struct {
	dir repository.DirectoryRepository
}

// NewProfileMembershipGate checks eligibility against the profiles directory
func NewProfileMembershipGate(dir repository.DirectoryRepository) *ProfileMembershipGate {
	return &ProfileMembershipGate{dir: dir}
}

// IsActiveMember is true for profiles with an active membership. Unknown
// voters are not members.
func (g *ProfileMembershipGate) IsActiveMember(ctx context.Context, voterID string) (bool, error) {
	profile, err := g.dir.GetProfile(ctx, voterID)
	if repository.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return profile.MembershipStatus == models.MembershipActive, nil
}

// MembershipGateFunc adapts a plain function to MembershipGate.
type MembershipGateFunc func(ctx context.Context, voterID string) (bool, error)

func (f MembershipGateFunc) IsActiveMember(ctx context.Context, voterID string) (bool, error) {
	return f(ctx, voterID)
}
