package users

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeNotFound           = "document_not_found"
	TextCodeUserNotFound       = "user_not_found"
	TextCodeDuplicateKey       = "duplicate_key"
	TextCodeInvalidCredentials = "invalid_credentials"
	TextCodeCredentials        = "could_not_validate_credentials"
	TextCodeTokenExpired       = "token_expired"
	TextCodeTokenMalformed     = "token_malformed"
	TextCodeInactiveUser       = "inactive_user"
	TextCodeDecodeFailure      = "document_decode_failed"
	TextCodeStoreWrite         = "store_write_failed"
	TextCodeStoreTimeout       = "store_timeout"
)

// ErrNotFound is returned by the store when no document exists for a key.
var ErrNotFound = errors.New("document not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrUserNotFound is returned by the repository when a username does not
// resolve to an account.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrDuplicateKey is returned when a create targets a key that already
// holds a document. The existing record is never overwritten.
var ErrDuplicateKey = errors.New("document already exists for key", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateKey).
	WithCode(errors.CodeConflict)

// ErrInvalidCredentials covers both unknown usernames and wrong
// passwords so login responses cannot be used to enumerate accounts.
var ErrInvalidCredentials = errors.New("incorrect username or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrCouldNotValidate is the single error shape for every bearer token
// failure: bad signature, expiry, missing subject, or a subject that no
// longer resolves to a user. Collapsing them avoids leaking which check
// failed.
var ErrCouldNotValidate = errors.New("Could not validate credentials", errors.CategoryAuth).
	WithTextCode(TextCodeCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a token's expiration is in the past.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a token cannot be parsed or its
// signature or algorithm do not match the configured secret and method.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrInactiveUser is returned when a valid token resolves to an account
// whose active flag is off. Deliberately more specific than the token
// validation errors, and carries a 400 rather than a 401.
var ErrInactiveUser = errors.New("Inactive user", errors.CategoryAuth).
	WithTextCode(TextCodeInactiveUser).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a cleartext password
// does not verify against a stored hash.
var ErrMismatchedHashAndPassword = errors.New("password does not match hash", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyPassword rejects hashing an empty string.
var ErrNoEmptyPassword = errors.New("password must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenExpired) ||
		strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed")
}

// withMetadata attaches metadata to a copy of a shared sentinel. The
// sentinel itself is never mutated; callers and concurrent requests
// each get their own error value, and errors.Is still matches through
// the clone's source chain.
func withMetadata(sentinel *errors.Error, meta map[string]any) *errors.Error {
	clone := sentinel.Clone()
	if clone == nil {
		return sentinel
	}
	clone.Source = sentinel
	return clone.WithMetadata(meta)
}

func decodeError(field string, doc Document) *errors.Error {
	return errors.New("user document is missing or malformed", errors.CategoryValidation).
		WithTextCode(TextCodeDecodeFailure).
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{
			"field": field,
			"keys":  documentKeys(doc),
		})
}

func documentKeys(doc Document) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	return keys
}
