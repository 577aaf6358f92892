package users

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey    []byte
	signingMethod jwt.SigningMethod
	ttl           time.Duration
	logger        Logger
}

var _ TokenService = (*TokenServiceImpl)(nil)

// NewTokenService creates a new TokenService instance. The signing
// secret and algorithm come from the given configuration; token
// validity is fully stateless and reproducible from (secret,
// algorithm, claims, clock) alone.
func NewTokenService(cfg Config, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}

	method := jwt.GetSigningMethod(cfg.SigningMethod)
	if method == nil {
		method = jwt.SigningMethodHS256
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenServiceImpl{
		signingKey:    []byte(cfg.SigningKey),
		signingMethod: method,
		ttl:           ttl,
		logger:        logger,
	}
}

// Issue stamps an absolute expiration on the claims and signs them with
// the configured secret. When no ttl is given the configured default
// applies.
func (ts *TokenServiceImpl) Issue(claims *TokenClaims, ttl ...time.Duration) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	d := ts.ttl
	if len(ttl) > 0 && ttl[0] > 0 {
		d = ttl[0]
	}

	now := time.Now()
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(d))
	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(ts.signingMethod, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signedString, nil
}

// IssueForUser issues a token whose subject claim is the given username.
func (ts *TokenServiceImpl) IssueForUser(username string, ttl ...time.Duration) (string, error) {
	return ts.Issue(NewTokenClaims(username), ttl...)
}

// Validate parses and validates a token string, returning structured
// claims. It fails when the signature does not match the configured
// secret, the algorithm differs from the configured one, the
// expiration claim is absent, or the expiration is in the past.
func (ts *TokenServiceImpl) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		if t.Method.Alg() != ts.signingMethod.Alg() {
			return nil, fmt.Errorf("unexpected signing method: expected %q got %q", ts.signingMethod.Alg(), t.Method.Alg())
		}
		return ts.signingKey, nil
	}, jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
