package services

import "errors"

// ErrSelfFollow is returned when a user tries to follow themselves.
var ErrSelfFollow = errors.New("cannot follow yourself")

// ErrNameRequired is returned when a category is created or updated
// without a name.
var ErrNameRequired = errors.New("category name is required")

// ErrNotOwner is returned when a user tries to modify a category they do
// not own.
var ErrNotOwner = errors.New("not the category owner")
