package users

import (
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

const (
	// DefaultSigningMethod is the default for Config.SigningMethod.
	DefaultSigningMethod = "HS256"

	// DefaultTokenTTL is the default for Config.TokenTTL.
	DefaultTokenTTL = 15 * time.Minute

	// DefaultDatabaseName is the default for Config.DatabaseName.
	DefaultDatabaseName = "app"

	// DefaultUsersCollection is the default for Config.UsersCollection.
	DefaultUsersCollection = "users"

	// DefaultStoreTimeout is the default for Config.StoreTimeout.
	DefaultStoreTimeout = 5 * time.Second

	// DefaultContextKey is the default for Config.ContextKey.
	DefaultContextKey = "user"

	// DefaultTokenLookup is the default for Config.TokenLookup.
	DefaultTokenLookup = "header:Authorization"

	// DefaultAuthScheme is the default for Config.AuthScheme.
	DefaultAuthScheme = "Bearer"
)

// Config holds signing and storage options. It is constructed once at
// process start and passed by reference into the components that need
// it; nothing in this package reads process-wide state after that.
// A zero value with a SigningKey is a valid configuration, see the
// Default* constants for the values applied by EnsureDefaults.
type Config struct {
	// SigningKey is the server held secret used to sign and verify
	// access tokens.
	SigningKey string `env:"SECRET_KEY"`

	// SigningMethod is the JWT signing algorithm. Only the HMAC family
	// is supported.
	SigningMethod string `env:"ALGORITHM"`

	// TokenTTL tells how long an issued token remains valid.
	TokenTTL time.Duration `env:"ACCESS_TOKEN_TTL"`

	// MongoURI is the connection string for the document store.
	MongoURI string `env:"MONGO_URI"`

	// DatabaseName is the name of the database holding the users
	// collection.
	DatabaseName string `env:"MONGO_DATABASE"`

	// UsersCollection is the name of the collection user documents are
	// stored in.
	UsersCollection string `env:"USERS_COLLECTION"`

	// StoreTimeout bounds every document store call.
	StoreTimeout time.Duration `env:"STORE_TIMEOUT"`

	// ContextKey is the request locals key the resolved user is stored
	// under by the middleware.
	ContextKey string `env:"AUTH_CONTEXT_KEY"`

	// TokenLookup tells the middleware where to find the bearer token,
	// e.g. "header:Authorization,cookie:jwt,query:token".
	TokenLookup string `env:"AUTH_TOKEN_LOOKUP"`

	// AuthScheme is the expected Authorization header scheme.
	AuthScheme string `env:"AUTH_SCHEME"`
}

// LoadConfig reads configuration from the environment, applies
// defaults, and validates the result.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, errors.CategoryOperation, "failed to parse configuration from environment")
	}

	cfg.EnsureDefaults()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// EnsureDefaults fills every unset option with its default value.
func (c *Config) EnsureDefaults() {
	if c.SigningMethod == "" {
		c.SigningMethod = DefaultSigningMethod
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	if c.DatabaseName == "" {
		c.DatabaseName = DefaultDatabaseName
	}
	if c.UsersCollection == "" {
		c.UsersCollection = DefaultUsersCollection
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = DefaultStoreTimeout
	}
	if c.ContextKey == "" {
		c.ContextKey = DefaultContextKey
	}
	if c.TokenLookup == "" {
		c.TokenLookup = DefaultTokenLookup
	}
	if c.AuthScheme == "" {
		c.AuthScheme = DefaultAuthScheme
	}
}

// Validate will validate the configuration
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.SigningMethod, validation.Required, validation.In("HS256", "HS384", "HS512")),
		validation.Field(&c.UsersCollection, validation.Required),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid configuration")
	}
	return nil
}
