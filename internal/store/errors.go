package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyFollowing is returned when a follow edge already exists.
var ErrAlreadyFollowing = errors.New("already following")

// ErrNotFollowing is returned when a follow edge to remove does not exist.
var ErrNotFollowing = errors.New("not following")
