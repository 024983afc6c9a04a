package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// ErrConflict indicates a uniqueness constraint was violated, such as a
// duplicate username or a user added twice to the same project.
var ErrConflict = errors.New("repository: conflict")
