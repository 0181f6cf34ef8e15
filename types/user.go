package types

import "time"

// User represents an account in the system.
// It contains identity, the denormalized follow list, and the
// notification inbox.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	// It is immutable after registration.
	Username string `json:"username" db:"username"`

	// Name is the user's display name, shown to followers in
	// notifications.
	Name string `json:"name" db:"name"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// AvatarKey is the object-storage key of the user's avatar image,
	// empty if none was uploaded.
	AvatarKey string `json:"-" db:"avatar_key"`

	// Follows is the ordered list of usernames this user follows.
	// Insertion order is preserved and duplicates are rejected; a user
	// never appears in their own list.
	Follows []string `json:"follows" db:"follows"`

	// Notifications is the user's inbox: an append-only, oldest-first
	// sequence of snapshots taken when a followed user published.
	Notifications []Notification `json:"notifications" db:"notifications"`

	// ModifiedAt is advanced whenever the user publishes a category
	// create or update, and drives the "times ago" display.
	ModifiedAt time.Time `json:"modified_at" db:"modified_at"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Notification is a point-in-time snapshot delivered to a follower's
// inbox. It references nothing live; later edits to the publisher or the
// category do not alter records already delivered.
type Notification struct {
	// Name is the publisher's display name at publish time.
	Name string `json:"name"`

	// CategoryName is the category's name at publish time.
	CategoryName string `json:"category_name"`

	// CategoryContent is the category's content at publish time.
	CategoryContent string `json:"category_content"`
}

// TokenPair is the session credential minted at registration and login:
// a short-lived access token and a longer-lived refresh token, both bound
// to one user.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
