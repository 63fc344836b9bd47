package shared

import "errors"

var (
	// ErrNotFound indicates the target record does not exist or belongs
	// to another owner.
	ErrNotFound = errors.New("not found")
	// ErrOwnerRequired indicates the request carried no owner identity.
	ErrOwnerRequired = errors.New("owner id required")
	// ErrConcurrentUpdate indicates a conditional write lost the race.
	ErrConcurrentUpdate = errors.New("concurrent update detected")
)
