package core

import (
	"fmt"
	"time"
)

// ReviewStatus is the state of a single review attempt.
type ReviewStatus string

// ReviewStatus values. Done and Error are terminal.
const (
	ReviewStatusPending ReviewStatus = "pending"
	ReviewStatusRunning ReviewStatus = "running"
	ReviewStatusDone    ReviewStatus = "done"
	ReviewStatusError   ReviewStatus = "error"
)

var reviewTransitions = map[ReviewStatus][]ReviewStatus{
	ReviewStatusPending: {ReviewStatusRunning},
	ReviewStatusRunning: {ReviewStatusDone, ReviewStatusError},
}

// Valid reports whether s is one of the known review states.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewStatusPending, ReviewStatusRunning, ReviewStatusDone, ReviewStatusError:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are allowed from s.
func (s ReviewStatus) Terminal() bool {
	return s == ReviewStatusDone || s == ReviewStatusError
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to ReviewStatus) bool {
	for _, next := range reviewTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrIllegalTransition when from -> to is not allowed.
func CheckTransition(from, to ReviewStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// Review is one review attempt for a pull request.
type Review struct {
	ID            int64        `db:"id" json:"id"`
	PullRequestID int64        `db:"pull_request_id" json:"pull_request_id"`
	Status        ReviewStatus `db:"status" json:"status"`
	StartedAt     time.Time    `db:"started_at" json:"started_at"`
	CompletedAt   *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
	Summary       *string      `db:"summary" json:"summary,omitempty"`
	TokensUsed    *int         `db:"tokens_used" json:"tokens_used,omitempty"`
}

// Transition moves the in-memory review to the next state, enforcing the state machine.
func (r *Review) Transition(to ReviewStatus) error {
	if err := CheckTransition(r.Status, to); err != nil {
		return err
	}
	r.Status = to
	return nil
}

// ReviewOutcome is what a finished run records on its Review.
type ReviewOutcome struct {
	Status      ReviewStatus
	Summary     string
	TokensUsed  int
	Comments    []ReviewComment
	CompletedAt time.Time
}
