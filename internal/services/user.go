package services

import (
	"context"
	"time"

	"github.com/notefeed/apiserver/types"
)

// UserRepository defines persistence operations for users, their follow
// lists, and their notification inboxes.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Exists(ctx context.Context, username string) (bool, error)
	ListByUsernames(ctx context.Context, usernames []string) ([]types.User, error)
	ListFollowers(ctx context.Context, username string) ([]types.User, error)
	AppendFollow(ctx context.Context, userID int, target string) ([]string, error)
	RemoveFollow(ctx context.Context, userID int, target string) ([]string, error)
	AppendNotification(ctx context.Context, eventID string, followerID int, note types.Notification) (bool, error)
	TouchModified(ctx context.Context, userID int, at time.Time) error
	UpdateAvatarKey(ctx context.Context, userID int, key string) error
}

// UserService encapsulates user-directory use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}

func (s *UserService) Exists(ctx context.Context, username string) (bool, error) {
	return s.repo.Exists(ctx, username)
}

// ListFollows resolves the actor's follow list to user records, in
// follow-insertion order.
func (s *UserService) ListFollows(ctx context.Context, actor types.User) ([]types.User, error) {
	return s.repo.ListByUsernames(ctx, actor.Follows)
}

func (s *UserService) UpdateAvatarKey(ctx context.Context, userID int, key string) error {
	return s.repo.UpdateAvatarKey(ctx, userID, key)
}
