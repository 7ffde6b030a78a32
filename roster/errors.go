package roster

import "errors"

var (
	// ErrInvalidInput is returned when request parameters are missing or
	// malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownOccurrence is returned when an occurrence ID does not fall
	// out of projecting its own rule, i.e. the key points at a date the
	// rule never fires on.
	ErrUnknownOccurrence = errors.New("occurrence does not exist for rule")
	// ErrRoleTaken is returned when assigning a role slot already held by
	// a different member.
	ErrRoleTaken = errors.New("role already assigned")
	// ErrNotAssigned is returned when a swap refers to a slot the
	// requesting member does not hold.
	ErrNotAssigned = errors.New("member does not hold this assignment")
	// ErrSwapClosed is returned when resolving a swap request that is no
	// longer pending.
	ErrSwapClosed = errors.New("swap request already resolved")
)
