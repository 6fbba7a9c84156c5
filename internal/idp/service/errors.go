package service

import "errors"

var (
	// Protocol errors. The HTTP layer maps these onto OAuth2 error codes.
	ErrInvalidRequest       = errors.New("invalid_request")
	ErrInvalidClient        = errors.New("invalid_client")
	ErrInvalidGrant         = errors.New("invalid_grant")
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")

	// ErrStateConflict reports a transaction being driven out of order, such
	// as binding a second user. Surfaced externally as invalid_grant.
	ErrStateConflict = errors.New("state_conflict")

	// ErrTransactionNotFound covers unknown transactions and transactions
	// owned by another session.
	ErrTransactionNotFound = errors.New("transaction not found")

	ErrChallengeExpired   = errors.New("challenge_expired")
	ErrVerificationFailed = errors.New("verification_failed")
	ErrSignCountAnomaly   = errors.New("sign count did not increase")

	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not_found")
	ErrLastPasskey     = errors.New("cannot delete the last passkey")

	// Startup configuration errors.
	ErrMissingSalt = errors.New("pairwise salt must not be empty")
)
