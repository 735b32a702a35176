package core

import "errors"

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrIllegalTransition is returned when a review state change violates the state machine.
	ErrIllegalTransition = errors.New("illegal review status transition")
	// ErrNoConnection is returned when no credential exists to call the source-control host.
	ErrNoConnection = errors.New("no source-control connection available")
	// ErrNoCredential is returned when no AI-provider credential can be resolved.
	ErrNoCredential = errors.New("no AI provider credential available")
	// ErrQueueFull is returned when the worker pool cannot accept more review tasks.
	ErrQueueFull = errors.New("review queue is full")
)
