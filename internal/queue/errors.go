package queue

import "errors"

// Store-level contract errors. DuplicateID and NotFound surface to
// callers as contract violations; AlreadyClaimed and StaleClaim are
// control-flow signals inside the claim protocol and are never shown to
// end clients.
var (
	// ErrDuplicateID is returned by Create when the id already exists.
	ErrDuplicateID = errors.New("work item id already exists")

	// ErrNotFound is returned when no item matches the requested id.
	ErrNotFound = errors.New("work item not found")

	// ErrAlreadyClaimed is returned by TryClaim when the item is no
	// longer pending. Another worker won the race; the caller skips the
	// item without treating this as a failure.
	ErrAlreadyClaimed = errors.New("work item already claimed")

	// ErrStaleClaim is returned by commit operations when the stored
	// claim token no longer matches. The caller lost ownership (a
	// reclaim sweep or terminal commit intervened) and must discard its
	// outcome silently rather than retry.
	ErrStaleClaim = errors.New("work item claim is stale")
)
