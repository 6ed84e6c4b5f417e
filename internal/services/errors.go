// Package services defines the business logic for member identity, session
// tokens, the anonymous numbering ledger, and threaded comments. This file
// centralizes the service-level error values so that service methods return
// them consistently and callers can check them with errors.Is.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
)

// ErrNotFound is the common kind of every "does not exist" error below.
var ErrNotFound = errors.New("not found")

// Lookup errors. Each wraps ErrNotFound.
var (
	// ErrPostNotFound indicates that the referenced post does not exist.
	ErrPostNotFound = fmt.Errorf("post %w", ErrNotFound)

	// ErrCommentNotFound indicates that the referenced comment does not exist,
	// or belongs to a different post than the one addressed.
	ErrCommentNotFound = fmt.Errorf("comment %w", ErrNotFound)

	// ErrMemberNotFound indicates that the referenced member does not exist.
	ErrMemberNotFound = fmt.Errorf("member %w", ErrNotFound)

	// ErrNumberNotAssigned indicates that the member has not commented on the
	// post yet, so holds no anonymous number there.
	ErrNumberNotAssigned = fmt.Errorf("anonymous number %w", ErrNotFound)

	// ErrRoleNotConfigured indicates that the default role for new members has
	// not been seeded.
	ErrRoleNotConfigured = fmt.Errorf("default role %w", ErrNotFound)
)

// Authorization and identity errors.
var (
	// ErrUnauthorized is returned when the requester does not own the comment
	// being modified.
	ErrUnauthorized = errors.New("requester does not own this comment")

	// ErrIdentityMismatch is returned when an OAuth identifier is already bound
	// to a member under a different provider.
	ErrIdentityMismatch = errors.New("oauth identity mismatch")

	// ErrInvalidToken is returned for session tokens that fail verification or
	// no longer match the member's stored pair.
	ErrInvalidToken = errors.New("invalid or revoked token")
)

// ErrConflict is returned when a write kept colliding with concurrent writers
// after the bounded number of attempts. The operation had no effect and may
// be retried by the caller.
var ErrConflict = errors.New("concurrent update conflict")

// Validation errors.
var (
	// ErrEmptyContent is returned when comment content is blank after
	// normalization.
	ErrEmptyContent = errors.New("content is empty")

	// ErrInvalidContent is returned when comment content is not valid UTF-8.
	ErrInvalidContent = errors.New("content is not valid utf-8")

	// ErrContentTooLong is returned when comment content exceeds the
	// configured rune limit.
	ErrContentTooLong = errors.New("content too long")

	// ErrInvalidPage is returned for a negative page number or a non-positive
	// page size.
	ErrInvalidPage = errors.New("invalid page")

	// ErrInvalidIdentity is returned when an OAuth identifier or provider is
	// blank.
	ErrInvalidIdentity = errors.New("oauth identifier and provider are required")
)
