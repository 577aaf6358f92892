package users

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// ErrMissingToken is returned when no bearer token can be extracted
// from the request.
var ErrMissingToken = errors.New("missing or malformed bearer token", errors.CategoryAuth).
	WithTextCode(TextCodeCredentials).
	WithCode(errors.CodeUnauthorized)

// MiddlewareConfig configures the Protected middleware.
type MiddlewareConfig struct {
	// Authenticator resolves tokens to active users. Required.
	Authenticator *Authenticator

	// ContextKey is the locals key the resolved user is stored under.
	ContextKey string

	// TokenLookup tells where to find the token, in the form
	// "header:Authorization,cookie:jwt,query:token,param:token".
	TokenLookup string

	// AuthScheme is the expected Authorization header scheme.
	AuthScheme string

	// Filter skips the middleware when it returns true.
	Filter func(*fiber.Ctx) bool

	// ErrorHandler converts rejections into responses.
	ErrorHandler fiber.ErrorHandler
}

// Protected returns a middleware that rejects requests that do not
// carry a valid bearer token for an existing, active user. The resolved
// user is stored in the request locals under the configured key.
func Protected(config ...MiddlewareConfig) fiber.Handler {
	cfg := middlewareDefaults(config...)
	extractors := tokenExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := extractToken(c, extractors)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		user, err := cfg.Authenticator.CurrentActiveUser(c.UserContext(), raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, user)

		return c.Next()
	}
}

func middlewareDefaults(config ...MiddlewareConfig) MiddlewareConfig {
	cfg := MiddlewareConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Authenticator == nil {
		panic("USERS: middleware configuration: Authenticator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = DefaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = DefaultAuthScheme
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultAuthErrorHandler
	}

	return cfg
}

// DefaultAuthErrorHandler renders rejections the way the login/token
// contract expects: inactive users get a 400 with a specific detail,
// every token failure collapses into a single 401 with a bearer
// challenge so a caller cannot tell which check failed. Failures that
// are not auth failures, a store timeout or outage while resolving the
// token's subject, surface as server errors instead; a broken store
// must not teach clients their tokens are bad.
func DefaultAuthErrorHandler(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrInactiveUser) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Inactive user",
		})
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Category != errors.CategoryAuth {
		status := richErr.Code
		if status == 0 {
			status = fiber.StatusInternalServerError
		}
		return c.Status(status).JSON(fiber.Map{
			"detail": richErr.Message,
		})
	}

	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"detail": "Could not validate credentials",
	})
}

type tokenExtractor func(c *fiber.Ctx) (string, error)

func extractToken(c *fiber.Ctx, extractors []tokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			break
		}
	}

	if raw == "" && err == nil {
		err = ErrMissingToken
	}

	return raw, err
}

func tokenExtractors(tokenLookup string, authScheme string) []tokenExtractor {
	extractors := make([]tokenExtractor, 0)

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, tokenFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

// tokenFromHeader returns a function that extracts the token from the
// request header.
func tokenFromHeader(header string, authScheme string) tokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		l := len(authScheme)
		if l == 0 {
			return "", ErrMissingToken
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrMissingToken
	}
}

// tokenFromQuery returns a function that extracts the token from the
// query string.
func tokenFromQuery(param string) tokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrMissingToken
		}
		return token, nil
	}
}

// tokenFromParam returns a function that extracts the token from a url
// parameter.
func tokenFromParam(param string) tokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Params(param)
		if token == "" {
			return "", ErrMissingToken
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts the token from the
// named cookie.
func tokenFromCookie(name string) tokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrMissingToken
		}
		return token, nil
	}
}
