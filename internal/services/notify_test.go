package services

import (
	"context"
	"errors"
	"testing"

	"github.com/notefeed/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyFollowersDeliversToEachFollower(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.addUser("alice", "Alice")
	f1 := repo.addUser("f1", "Follower One")
	f2 := repo.addUser("f2", "Follower Two")
	_, err := repo.AppendFollow(context.Background(), f1.ID, "alice")
	require.NoError(t, err)
	_, err = repo.AppendFollow(context.Background(), f2.ID, "alice")
	require.NoError(t, err)

	before := alice.ModifiedAt
	notifier := NewNotifier(repo, nil)
	require.NoError(t, notifier.NotifyFollowers(context.Background(), alice, "Trip", "Japan"))

	want := types.Notification{Name: "Alice", CategoryName: "Trip", CategoryContent: "Japan"}
	for _, follower := range []types.User{f1, f2} {
		stored, err := repo.GetByID(context.Background(), follower.ID)
		require.NoError(t, err)
		assert.Equal(t, []types.Notification{want}, stored.Notifications)
	}

	publisher, err := repo.GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.True(t, publisher.ModifiedAt.After(before))
}

func TestNotifyFollowersSkipsNonFollowers(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.addUser("alice", "Alice")
	bob := repo.addUser("bob", "Bob")

	notifier := NewNotifier(repo, nil)
	require.NoError(t, notifier.NotifyFollowers(context.Background(), alice, "Trip", "Japan"))

	stored, err := repo.GetByID(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Notifications)
}

func TestNotifyFollowersNoRetroactiveDelivery(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.addUser("alice", "Alice")
	bob := repo.addUser("bob", "Bob")
	notifier := NewNotifier(repo, nil)

	// Alice publishes before bob follows her.
	require.NoError(t, notifier.NotifyFollowers(context.Background(), alice, "Trip", "Japan"))

	_, err := repo.AppendFollow(context.Background(), bob.ID, "alice")
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Notifications)
}

func TestDeliverIsIdempotentPerEvent(t *testing.T) {
	repo := newFakeUserRepo()
	repo.addUser("alice", "Alice")
	bob := repo.addUser("bob", "Bob")
	_, err := repo.AppendFollow(context.Background(), bob.ID, "alice")
	require.NoError(t, err)

	notifier := NewNotifier(repo, nil)
	event := types.CategoryEvent{
		EventID:           "event-1",
		PublisherUsername: "alice",
		PublisherName:     "Alice",
		CategoryName:      "Trip",
		CategoryContent:   "Japan",
	}

	require.NoError(t, notifier.Deliver(context.Background(), event))
	require.NoError(t, notifier.Deliver(context.Background(), event))

	stored, err := repo.GetByID(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Notifications, 1)
}

func TestDeliverContinuesPastFailedInbox(t *testing.T) {
	repo := newFakeUserRepo()
	repo.addUser("alice", "Alice")
	broken := repo.addUser("broken", "Broken")
	healthy := repo.addUser("healthy", "Healthy")
	_, err := repo.AppendFollow(context.Background(), broken.ID, "alice")
	require.NoError(t, err)
	_, err = repo.AppendFollow(context.Background(), healthy.ID, "alice")
	require.NoError(t, err)

	inboxErr := errors.New("disk full")
	repo.inboxErr[broken.ID] = inboxErr

	notifier := NewNotifier(repo, nil)
	event := types.CategoryEvent{
		EventID:           "event-2",
		PublisherUsername: "alice",
		PublisherName:     "Alice",
		CategoryName:      "Trip",
		CategoryContent:   "Japan",
	}

	err = notifier.Deliver(context.Background(), event)
	assert.ErrorIs(t, err, inboxErr)

	stored, err := repo.GetByID(context.Background(), healthy.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Notifications, 1)
}
