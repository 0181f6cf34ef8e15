package services

import (
	"context"
	"testing"

	"github.com/notefeed/apiserver/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFollowThenRemoveRestoresList(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.addUser("alice", "Alice")
	repo.addUser("bob", "Bob")
	svc := NewFollowService(repo)

	follows, err := svc.AddFollow(context.Background(), alice, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, follows)

	follows, err = svc.RemoveFollow(context.Background(), alice, "bob")
	require.NoError(t, err)
	assert.Empty(t, follows)
}

func TestAddFollowSelfRejectedWithoutMutation(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.addUser("alice", "Alice")
	svc := NewFollowService(repo)

	_, err := svc.AddFollow(context.Background(), alice, "alice")
	assert.ErrorIs(t, err, ErrSelfFollow)

	stored, err := repo.GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Follows)
}

func TestAddFollowDuplicateRejected(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.addUser("alice", "Alice")
	repo.addUser("bob", "Bob")
	svc := NewFollowService(repo)

	_, err := svc.AddFollow(context.Background(), alice, "bob")
	require.NoError(t, err)

	_, err = svc.AddFollow(context.Background(), alice, "bob")
	assert.ErrorIs(t, err, store.ErrAlreadyFollowing)

	stored, err := repo.GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, stored.Follows)
}

func TestAddFollowUnknownTarget(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.addUser("alice", "Alice")
	svc := NewFollowService(repo)

	_, err := svc.AddFollow(context.Background(), alice, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAddFollowPreservesInsertionOrder(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.addUser("alice", "Alice")
	repo.addUser("bob", "Bob")
	repo.addUser("carol", "Carol")
	repo.addUser("dave", "Dave")
	svc := NewFollowService(repo)

	for _, target := range []string{"carol", "bob", "dave"} {
		_, err := svc.AddFollow(context.Background(), alice, target)
		require.NoError(t, err)
	}

	stored, err := repo.GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol", "bob", "dave"}, stored.Follows)
}

func TestRemoveFollowNotFollowing(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.addUser("alice", "Alice")
	repo.addUser("bob", "Bob")
	svc := NewFollowService(repo)

	_, err := svc.RemoveFollow(context.Background(), alice, "bob")
	assert.ErrorIs(t, err, store.ErrNotFollowing)
}
