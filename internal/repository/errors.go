// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrNotFound covers both a genuinely absent row and a row
// owned by another user: the two cases are deliberately
// indistinguishable to the caller, while ErrConflict signals that
// an operation cannot proceed because of an existing record
// (e.g. a duplicate task title in the same column).
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when an entity does not exist or is not owned
// by the requesting user. Handlers should translate this into an
// HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with existing state,
// such as creating a task whose normalized title already exists in the
// column. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they are not allowed to touch, e.g. updating another user's
// profile. Handlers should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned when registering with an email that is
// already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrAlreadyRevoked is returned when revoking a jti that is already in
// the revocation set. Revocation is not idempotent: a second revoke is
// a conflict, not a no-op.
var ErrAlreadyRevoked = errors.New("token already revoked")

// isDuplicateKey reports whether err is a MySQL duplicate-key violation
// (error 1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
