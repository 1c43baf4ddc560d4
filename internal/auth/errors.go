package auth

import "errors"

// The three terminal failure kinds of the token login flow. They map to
// distinct HTTP statuses but deliberately share vague user-facing pages,
// so a caller cannot tell an expired token from a deleted member from a
// disabled account.
var (
	// ErrTokenInvalid means the presented token is absent or expired.
	ErrTokenInvalid = errors.New("token not found or expired")

	// ErrMemberNotFound means the token's member no longer exists, or a
	// directory lookup during login came up empty.
	ErrMemberNotFound = errors.New("member not found")

	// ErrAccessDenied means the resolved principal is the wrong kind or
	// failed an account-status check.
	ErrAccessDenied = errors.New("access denied")
)
