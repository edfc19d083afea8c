package service

import "errors"

var (
	// ErrVoucherNotFound is returned when a voucher id or number does not resolve.
	ErrVoucherNotFound = errors.New("voucher not found")

	// ErrTemplateNotFound is returned when a template id does not resolve.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrVoucherExists is returned when a voucher number collides with an existing one.
	ErrVoucherExists = errors.New("voucher already exists")

	// ErrTemplateExists is returned when a template name collides with an existing one.
	ErrTemplateExists = errors.New("template already exists")

	// ErrInvalidRequest is returned when request data is nil or incomplete.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrVersionConflict is returned when an optimistic-lock write loses the race.
	// Two concurrent mutations against the same voucher surface as exactly one
	// success and one conflict, never two commits.
	ErrVersionConflict = errors.New("voucher was modified concurrently")

	// ErrDependencyUnavailable wraps failures of the external product catalog
	// or tax engine. Callers off the redemption critical path may degrade
	// instead of aborting.
	ErrDependencyUnavailable = errors.New("external dependency unavailable")
)
