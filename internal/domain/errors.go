package domain

import "errors"

var (
	// ErrRecipeNotFound is returned when a recipe cannot be found by name
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrSearchFailure is returned when the document store request fails
	ErrSearchFailure = errors.New("document store request failed")

	// ErrInputUnreadable is returned when an input catalog cannot be read or decoded
	ErrInputUnreadable = errors.New("input file unreadable")

	// ErrInvalidRecord is returned when a single input record fails validation
	ErrInvalidRecord = errors.New("invalid record")
)
