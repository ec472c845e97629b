package store

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint,
// such as sharing a checklist with the same email twice.
var ErrDuplicate = errors.New("record already exists")
