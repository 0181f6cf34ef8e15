package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/notefeed/apiserver/internal/mq"
	"github.com/notefeed/apiserver/types"
)

// Notifier is the notification fan-out engine. On a category create or
// update it delivers one inbox snapshot to every user following the
// publisher at trigger time.
//
// With no broker configured, delivery happens synchronously in the
// triggering request. With a broker, the event is published to the
// category event channel and a subscriber calls Deliver; the delivery
// guard in the store makes redelivery idempotent.
type Notifier struct {
	repo   UserRepository
	broker *mq.MQ
}

// NewNotifier constructs a Notifier. broker may be nil for synchronous
// delivery.
func NewNotifier(repo UserRepository, broker *mq.MQ) *Notifier {
	return &Notifier{repo: repo, broker: broker}
}

// NotifyFollowers triggers fan-out for one category event and advances
// the publisher's modified timestamp. Synchronous delivery is
// best-effort: a failed inbox write is logged, not rolled back.
func (n *Notifier) NotifyFollowers(ctx context.Context, publisher types.User, categoryName, categoryContent string) error {
	event := types.CategoryEvent{
		EventID:           uuid.NewString(),
		PublisherID:       publisher.ID,
		PublisherUsername: publisher.Username,
		PublisherName:     publisher.Name,
		CategoryName:      categoryName,
		CategoryContent:   categoryContent,
	}

	if n.broker != nil {
		if err := n.broker.PublishCategoryEvent(ctx, event); err != nil {
			return err
		}
	} else if err := n.Deliver(ctx, event); err != nil {
		log.Printf("notify: event %s delivered partially: %v", event.EventID, err)
	}

	return n.repo.TouchModified(ctx, publisher.ID, time.Now())
}

// Deliver snapshots the publisher's follower set and appends the
// notification to each follower's inbox. Followers that joined after the
// snapshot get nothing; followers removed mid-delivery still get theirs.
// One failed inbox does not stop the rest; the error reports how many
// failed so a broker consumer can nack for retry.
func (n *Notifier) Deliver(ctx context.Context, event types.CategoryEvent) error {
	followers, err := n.repo.ListFollowers(ctx, event.PublisherUsername)
	if err != nil {
		return err
	}

	note := types.Notification{
		Name:            event.PublisherName,
		CategoryName:    event.CategoryName,
		CategoryContent: event.CategoryContent,
	}

	var firstErr error
	failed := 0
	for _, follower := range followers {
		if _, err := n.repo.AppendNotification(ctx, event.EventID, follower.ID, note); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failed++
			log.Printf("notify: inbox write for user %d failed: %v", follower.ID, err)
		}
	}
	if failed > 0 {
		return firstErr
	}
	return nil
}

// Run subscribes to the category event channel and delivers events until
// ctx is cancelled. It is a no-op when no broker is configured.
func (n *Notifier) Run(ctx context.Context) error {
	if n.broker == nil {
		return nil
	}
	return n.broker.SubscribeCategoryEvents(ctx, n.Deliver)
}
