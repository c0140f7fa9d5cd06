package privy

import "errors"

var (
	// ErrKeyResolution means the provider's verification key could not be
	// fetched or parsed. Retryable; surfaces as a server error, not 401.
	ErrKeyResolution = errors.New("verification key unavailable")

	// ErrTokenExpired means the token was otherwise well-formed but its
	// expiry is in the past.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid covers every other verification failure: bad
	// signature, wrong audience or issuer, wrong algorithm, malformed
	// structure. Callers must not leak which check failed.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrMissingSubject means verified claims carried no subject.
	// Treated the same as ErrTokenInvalid at the HTTP boundary.
	ErrMissingSubject = errors.New("token claims missing subject")
)
