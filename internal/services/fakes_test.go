package services

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/notefeed/apiserver/internal/store"
	"github.com/notefeed/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository with the same locking and
// dedupe semantics as the postgres store.
type fakeUserRepo struct {
	mu        sync.Mutex
	nextID    int
	users     map[int]*types.User
	delivered map[string]map[int]bool
	inboxErr  map[int]error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:     make(map[int]*types.User),
		delivered: make(map[string]map[int]bool),
		inboxErr:  make(map[int]error),
	}
}

func (f *fakeUserRepo) addUser(username, name string) types.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user := &types.User{
		ID:            f.nextID,
		Username:      username,
		Name:          name,
		Follows:       []string{},
		Notifications: []types.Notification{},
		ModifiedAt:    time.Now().Add(-time.Hour),
	}
	f.users[user.ID] = user
	return *user
}

func (f *fakeUserRepo) byUsername(username string) (*types.User, bool) {
	for _, user := range f.users {
		if user.Username == username {
			return user, true
		}
	}
	return nil, false
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return *user, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byUsername(username)
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return *user, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	created := f.addUser(user.Username, user.Name)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[created.ID].PasswordHash = user.PasswordHash
	created.PasswordHash = user.PasswordHash
	return created, nil
}

func (f *fakeUserRepo) Exists(ctx context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byUsername(username)
	return ok, nil
}

func (f *fakeUserRepo) ListByUsernames(ctx context.Context, usernames []string) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]types.User, 0, len(usernames))
	for _, username := range usernames {
		if user, ok := f.byUsername(username); ok {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) ListFollowers(ctx context.Context, username string) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var followers []types.User
	for _, user := range f.users {
		if slices.Contains(user.Follows, username) {
			followers = append(followers, *user)
		}
	}
	return followers, nil
}

func (f *fakeUserRepo) AppendFollow(ctx context.Context, userID int, target string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if slices.Contains(user.Follows, target) {
		return nil, store.ErrAlreadyFollowing
	}
	user.Follows = append(user.Follows, target)
	return slices.Clone(user.Follows), nil
}

func (f *fakeUserRepo) RemoveFollow(ctx context.Context, userID int, target string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
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

func (f *fakeUserRepo) AppendNotification(ctx context.Context, eventID string, followerID int, note types.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.inboxErr[followerID]; err != nil {
		return false, err
	}
	user, ok := f.users[followerID]
	if !ok {
		return false, store.ErrNotFound
	}
	if f.delivered[eventID] == nil {
		f.delivered[eventID] = make(map[int]bool)
	}
	if f.delivered[eventID][followerID] {
		return false, nil
	}
	f.delivered[eventID][followerID] = true
	user.Notifications = append(user.Notifications, note)
	return true, nil
}

func (f *fakeUserRepo) TouchModified(ctx context.Context, userID int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.ModifiedAt = at
	return nil
}

func (f *fakeUserRepo) UpdateAvatarKey(ctx context.Context, userID int, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.AvatarKey = key
	return nil
}

// fakeCategoryRepo is an in-memory CategoryRepository.
type fakeCategoryRepo struct {
	mu         sync.Mutex
	nextID     int
	categories map[int]*types.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: make(map[int]*types.Category)}
}

func (f *fakeCategoryRepo) Get(ctx context.Context, id int) (types.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	category, ok := f.categories[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	return *category, nil
}

func (f *fakeCategoryRepo) ListByOwner(ctx context.Context, ownerID int) ([]types.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var categories []types.Category
	for id := 1; id <= f.nextID; id++ {
		if category, ok := f.categories[id]; ok && category.OwnerID == ownerID {
			categories = append(categories, *category)
		}
	}
	return categories, nil
}

func (f *fakeCategoryRepo) Create(ctx context.Context, category types.Category) (types.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	category.ID = f.nextID
	category.CreatedAt = time.Now()
	category.UpdatedAt = category.CreatedAt
	f.categories[category.ID] = &category
	return category, nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, category types.Category) (types.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.categories[category.ID]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	existing.Name = category.Name
	existing.Content = category.Content
	existing.UpdatedAt = time.Now()
	return *existing, nil
}
