package users

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Document is a raw store record as read from or written to the
// document database.
type Document = map[string]any

// Store is the document store the user repository is built on. It is a
// thin adapter over a remote keyed collection; implementations must
// exhibit read-after-write consistency for a single key.
type Store interface {
	// Get returns the document stored under key, or a not found error.
	Get(ctx context.Context, key string) (Document, error)
	// Insert persists doc under key only if no document exists for that
	// key. The existence check and the write are a single atomic
	// operation.
	Insert(ctx context.Context, key string, doc Document) error
	// Set persists doc under key, replacing any existing document.
	Set(ctx context.Context, key string, doc Document) error
	// Update merges the given fields onto the existing document.
	Update(ctx context.Context, key string, fields Document) error
	// Delete removes the document under key. Deleting an absent key is
	// not an error.
	Delete(ctx context.Context, key string) error
	// All returns every document in the collection, unordered.
	All(ctx context.Context) ([]Document, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenService issues and validates access tokens.
type TokenService interface {
	TokenValidator
	Issue(claims *TokenClaims, ttl ...time.Duration) (string, error)
	IssueForUser(username string, ttl ...time.Duration) (string, error)
}

// TokenValidator validates tokens and extracts claims without tying
// callers to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (*TokenClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (*TokenClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(tokenString)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] USERS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] USERS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] USERS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] USERS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
