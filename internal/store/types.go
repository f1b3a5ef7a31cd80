// Package store persists personas, agoras, and shared posts in SQLite. Every
// row is scoped to an opaque owner identity supplied by the caller; the store
// never interprets it.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a row does not exist for the given owner.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a shared post status change is not
// allowed from its current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// PostStatus is the review state of a shared post.
type PostStatus string

const (
	PostStatusPending  PostStatus = "pending"
	PostStatusApproved PostStatus = "approved"
	PostStatusRejected PostStatus = "rejected"
)

// Valid reports whether s is a known status value.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusPending, PostStatusApproved, PostStatusRejected:
		return true
	}
	return false
}

// canTransition encodes the review workflow: only pending posts move, and
// only to a terminal state.
func canTransition(from, to PostStatus) bool {
	return from == PostStatusPending && (to == PostStatusApproved || to == PostStatusRejected)
}

// Persona is a stored simulated-user profile.
type Persona struct {
	ID          string    `json:"id"`
	Owner       string    `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Agora is a named persona panel.
type Agora struct {
	ID          string    `json:"id"`
	Owner       string    `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PersonaIDs  []string  `json:"personaIds"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SharedPost is a simulation outcome published for review.
type SharedPost struct {
	ID          string     `json:"id"`
	Owner       string     `json:"-"`
	Idea        string     `json:"idea"`
	VariantText string     `json:"variantText"`
	Score       int        `json:"nps"`
	Status      PostStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}
