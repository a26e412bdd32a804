package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrEmailAlreadyExists is returned when an attempt to register a new
	// user fails because a user with the same email already exists in the
	// database.
	ErrEmailAlreadyExists = errors.New("email already exists")

	// ErrNoUserWasFound is returned when a query expected to match at
	// least one user record produces an empty result set.
	ErrNoUserWasFound = errors.New("no user was found")

	// ErrEscrowNotUpdated is returned when an escrow UPDATE completes
	// without error but affects zero rows: the guarded condition did not
	// hold (account already migrated, escrow already initialized, or the
	// target row vanished). Callers use it to detect a lost migration
	// race and fall back to the current-path read.
	ErrEscrowNotUpdated = errors.New("escrow record was not updated")

	// ErrContactNotFound is returned when a query or update targets a
	// contact (identified by contact_id and user_id) that does not exist.
	ErrContactNotFound = errors.New("contact was not found")
)
