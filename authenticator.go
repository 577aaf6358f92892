package users

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// Authenticator verifies credentials and resolves users from bearer
// tokens.
type Authenticator struct {
	manager *UserManager
	tokens  TokenService
	logger  Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(manager *UserManager, tokens TokenService) *Authenticator {
	return &Authenticator{
		manager: manager,
		tokens:  tokens,
		logger:  defLogger{},
	}
}

func (a *Authenticator) WithLogger(l Logger) *Authenticator {
	if l != nil {
		a.logger = l
	}
	return a
}

// TokenService returns the TokenService instance used by this
// Authenticator.
func (a *Authenticator) TokenService() TokenService {
	return a.tokens
}

// Authenticate verifies the given credentials and returns the account.
// Unknown usernames and wrong passwords collapse into the same error so
// responses cannot be used to enumerate accounts.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := a.manager.Get(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		a.logger.Debug("password verification failed", "username", username)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates the credentials and issues an access token whose
// subject claim is the username.
func (a *Authenticator) Login(ctx context.Context, username, password string, ttl ...time.Duration) (string, error) {
	user, err := a.Authenticate(ctx, username, password)
	if err != nil {
		a.logger.Debug("login failed", "username", username, "error", err)
		return "", err
	}

	return a.tokens.IssueForUser(user.Username, ttl...)
}

// CurrentUser resolves the account a bearer token was issued for. A
// token whose subject no longer resolves to a user fails the same way
// a forged or stale token does; the two cases are deliberately
// indistinguishable to the caller.
func (a *Authenticator) CurrentUser(ctx context.Context, token string) (*User, error) {
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	data, err := claims.TokenData()
	if err != nil {
		return nil, err
	}

	user, err := a.manager.Get(ctx, data.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrCouldNotValidate
		}
		return nil, err
	}

	return user, nil
}

// CurrentActiveUser resolves the account like CurrentUser and then
// enforces the active flag. An inactive account is rejected with
// ErrInactiveUser, a distinct, more specific failure than the token
// validation errors.
func (a *Authenticator) CurrentActiveUser(ctx context.Context, token string) (*User, error) {
	user, err := a.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		a.logger.Debug("inactive user rejected", "username", user.Username)
		return nil, ErrInactiveUser
	}

	return user, nil
}
