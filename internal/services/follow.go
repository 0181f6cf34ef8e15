package services

import (
	"context"

	"github.com/notefeed/apiserver/internal/store"
	"github.com/notefeed/apiserver/types"
)

// FollowService enforces the follow-graph invariants: no edge to an
// unknown user, no self-follow, no duplicate edges, and removal of
// exactly one edge.
type FollowService struct {
	repo UserRepository
}

func NewFollowService(repo UserRepository) *FollowService {
	return &FollowService{repo: repo}
}

// AddFollow appends target to the actor's follow list and returns the
// updated list. The duplicate check itself happens under the store's row
// lock; validation here never mutates state.
func (s *FollowService) AddFollow(ctx context.Context, actor types.User, target string) ([]string, error) {
	exists, err := s.repo.Exists(ctx, target)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}
	if target == actor.Username {
		return nil, ErrSelfFollow
	}
	return s.repo.AppendFollow(ctx, actor.ID, target)
}

// RemoveFollow removes target from the actor's follow list and returns
// the updated list. Removing an edge to a since-deleted user still
// succeeds; only a missing edge fails.
func (s *FollowService) RemoveFollow(ctx context.Context, actor types.User, target string) ([]string, error) {
	return s.repo.RemoveFollow(ctx, actor.ID, target)
}
