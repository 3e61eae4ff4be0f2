// Package repository defines the persistence layer of the mentorship
// service. Sentinel values below let the service layer distinguish between
// failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist. Services
// translate it into a typed NotFound error.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registering a user whose email is
// already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrUsernameExists is returned when registering a user whose username is
// already taken.
var ErrUsernameExists = errors.New("username already exists")
