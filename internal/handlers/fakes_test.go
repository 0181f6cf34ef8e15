package handlers

import (
	"context"
	"slices"
	"time"

	"github.com/notefeed/apiserver/internal/store"
	"github.com/notefeed/apiserver/types"
)

// memUserRepo is a minimal in-memory services.UserRepository for handler
// tests.
type memUserRepo struct {
	nextID    int
	users     map[int]*types.User
	delivered map[string]map[int]bool
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:     make(map[int]*types.User),
		delivered: make(map[string]map[int]bool),
	}
}

func (m *memUserRepo) seed(username, name string) types.User {
	user, _ := m.Create(context.Background(), types.User{Username: username, Name: name})
	return user
}

func (m *memUserRepo) byUsername(username string) (*types.User, bool) {
	for _, user := range m.users {
		if user.Username == username {
			return user, true
		}
	}
	return nil, false
}

func (m *memUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return *user, nil
}

func (m *memUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	user, ok := m.byUsername(username)
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return *user, nil
}

func (m *memUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	m.nextID++
	user.ID = m.nextID
	user.Follows = []string{}
	user.Notifications = []types.Notification{}
	user.ModifiedAt = time.Now().Add(-time.Hour)
	stored := user
	m.users[user.ID] = &stored
	return user, nil
}

func (m *memUserRepo) Exists(ctx context.Context, username string) (bool, error) {
	_, ok := m.byUsername(username)
	return ok, nil
}

func (m *memUserRepo) ListByUsernames(ctx context.Context, usernames []string) ([]types.User, error) {
	users := make([]types.User, 0, len(usernames))
	for _, username := range usernames {
		if user, ok := m.byUsername(username); ok {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (m *memUserRepo) ListFollowers(ctx context.Context, username string) ([]types.User, error) {
	var followers []types.User
	for _, user := range m.users {
		if slices.Contains(user.Follows, username) {
			followers = append(followers, *user)
		}
	}
	return followers, nil
}

func (m *memUserRepo) AppendFollow(ctx context.Context, userID int, target string) ([]string, error) {
	user, ok := m.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if slices.Contains(user.Follows, target) {
		return nil, store.ErrAlreadyFollowing
	}
	user.Follows = append(user.Follows, target)
	return slices.Clone(user.Follows), nil
}

func (m *memUserRepo) RemoveFollow(ctx context.Context, userID int, target string) ([]string, error) {
	user, ok := m.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	idx := slices.Index(user.Follows, target)
	if idx < 0 {
		return nil, store.ErrNotFollowing
	}
	user.Follows = slices.Delete(user.Follows, idx, idx+1)
	return slices.Clone(user.Follows), nil
}

func (m *memUserRepo) AppendNotification(ctx context.Context, eventID string, followerID int, note types.Notification) (bool, error) {
	user, ok := m.users[followerID]
	if !ok {
		return false, store.ErrNotFound
	}
	if m.delivered[eventID] == nil {
		m.delivered[eventID] = make(map[int]bool)
	}
	if m.delivered[eventID][followerID] {
		return false, nil
	}
	m.delivered[eventID][followerID] = true
	user.Notifications = append(user.Notifications, note)
	return true, nil
}

func (m *memUserRepo) TouchModified(ctx context.Context, userID int, at time.Time) error {
	user, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.ModifiedAt = at
	return nil
}

func (m *memUserRepo) UpdateAvatarKey(ctx context.Context, userID int, key string) error {
	user, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.AvatarKey = key
	return nil
}

// memCategoryRepo is a minimal in-memory services.CategoryRepository.
type memCategoryRepo struct {
	nextID     int
	categories map[int]*types.Category
}

func newMemCategoryRepo() *memCategoryRepo {
	return &memCategoryRepo{categories: make(map[int]*types.Category)}
}

func (m *memCategoryRepo) Get(ctx context.Context, id int) (types.Category, error) {
	category, ok := m.categories[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	return *category, nil
}

func (m *memCategoryRepo) ListByOwner(ctx context.Context, ownerID int) ([]types.Category, error) {
	var categories []types.Category
	for id := 1; id <= m.nextID; id++ {
		if category, ok := m.categories[id]; ok && category.OwnerID == ownerID {
			categories = append(categories, *category)
		}
	}
	return categories, nil
}

func (m *memCategoryRepo) Create(ctx context.Context, category types.Category) (types.Category, error) {
	m.nextID++
	category.ID = m.nextID
	stored := category
	m.categories[category.ID] = &stored
	return category, nil
}

func (m *memCategoryRepo) Update(ctx context.Context, category types.Category) (types.Category, error) {
	existing, ok := m.categories[category.ID]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	existing.Name = category.Name
	existing.Content = category.Content
	return *existing, nil
}
