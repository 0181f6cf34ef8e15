package services

import (
	"context"

	"github.com/notefeed/apiserver/types"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	Get(ctx context.Context, id int) (types.Category, error)
	ListByOwner(ctx context.Context, ownerID int) ([]types.Category, error)
	Create(ctx context.Context, category types.Category) (types.Category, error)
	Update(ctx context.Context, category types.Category) (types.Category, error)
}

// CategoryService encapsulates category use-cases and triggers the
// fan-out engine after every durable mutation.
type CategoryService struct {
	repo     CategoryRepository
	users    UserRepository
	notifier *Notifier

	// legacyEdit skips the ownership check on update, reproducing the
	// original service's behavior for compatibility testing.
	legacyEdit bool
}

func NewCategoryService(repo CategoryRepository, users UserRepository, notifier *Notifier, legacyEdit bool) *CategoryService {
	return &CategoryService{
		repo:       repo,
		users:      users,
		notifier:   notifier,
		legacyEdit: legacyEdit,
	}
}

func (s *CategoryService) ListByOwner(ctx context.Context, ownerID int) ([]types.Category, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Create persists a new category for owner and notifies the owner's
// followers.
func (s *CategoryService) Create(ctx context.Context, owner types.User, name, content string) (types.Category, error) {
	if name == "" {
		return types.Category{}, ErrNameRequired
	}

	created, err := s.repo.Create(ctx, types.Category{
		OwnerID: owner.ID,
		Name:    name,
		Content: content,
	})
	if err != nil {
		return types.Category{}, err
	}

	if err := s.notifier.NotifyFollowers(ctx, owner, created.Name, created.Content); err != nil {
		return types.Category{}, err
	}
	return created, nil
}

// Update replaces a category's name and content in place and notifies
// the owner's followers. The actor must own the category unless legacy
// edit mode is on; the notification always carries the owner's identity.
func (s *CategoryService) Update(ctx context.Context, actor types.User, id int, name, content string) (types.Category, error) {
	if name == "" {
		return types.Category{}, ErrNameRequired
	}

	category, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Category{}, err
	}
	if !s.legacyEdit && category.OwnerID != actor.ID {
		return types.Category{}, ErrNotOwner
	}

	category.Name = name
	category.Content = content
	updated, err := s.repo.Update(ctx, category)
	if err != nil {
		return types.Category{}, err
	}

	publisher := actor
	if publisher.ID != updated.OwnerID {
		publisher, err = s.users.GetByID(ctx, updated.OwnerID)
		if err != nil {
			return types.Category{}, err
		}
	}

	if err := s.notifier.NotifyFollowers(ctx, publisher, updated.Name, updated.Content); err != nil {
		return types.Category{}, err
	}
	return updated, nil
}
