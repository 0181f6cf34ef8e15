package types

import "time"

// Category is a named note owned by exactly one user for its entire
// lifetime. Name and content are replaced in place on update; ownership
// never transfers and categories are never deleted.
type Category struct {
	// ID is the unique identifier of the category.
	ID int `json:"id" db:"id"`

	// OwnerID is the identifier of the owning user. Immutable after
	// creation.
	OwnerID int `json:"owner_id" db:"owner_id"`

	// Name is the human-readable name of the category. Required.
	Name string `json:"name" db:"name"`

	// Content is the free-form body of the note. May be empty.
	Content string `json:"content" db:"content"`

	// CreatedAt is the timestamp at which the category was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the category.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CategoryEvent describes one category create or update, published to the
// notification channel when a message broker is configured. EventID is
// the dedupe key for redelivery.
type CategoryEvent struct {
	EventID           string `json:"event_id"`
	PublisherID       int    `json:"publisher_id"`
	PublisherUsername string `json:"publisher_username"`
	PublisherName     string `json:"publisher_name"`
	CategoryName      string `json:"category_name"`
	CategoryContent   string `json:"category_content"`
}
