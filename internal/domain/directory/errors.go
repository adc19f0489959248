package directory

import "errors"

var (
	// ErrNotFound is returned when no user matches the lookup, including
	// lookups scoped to a hospital the user does not belong to.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateEmail is returned when a user with the same email already
	// exists in the hospital.
	ErrDuplicateEmail = errors.New("email already registered in hospital")

	// ErrRoleMismatch is returned when a user exists but does not have the
	// role an operation requires, e.g. booking an appointment against a
	// staff member instead of a doctor.
	ErrRoleMismatch = errors.New("user role does not permit this operation")
)
