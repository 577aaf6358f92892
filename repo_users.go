package users

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// UserManager performs CRUD on user documents keyed by username.
type UserManager struct {
	store  Store
	logger Logger
}

// NewUserManager will create a new UserManager over the given store.
func NewUserManager(store Store) *UserManager {
	return &UserManager{
		store:  store,
		logger: defLogger{},
	}
}

func (m *UserManager) WithLogger(l Logger) *UserManager {
	if l != nil {
		m.logger = l
	}
	return m
}

// Create persists a new user record. The write is a conditional create:
// if a record already holds the username the call fails with
// ErrDuplicateKey and the existing record is left untouched.
func (m *UserManager) Create(ctx context.Context, user *User) error {
	if user == nil {
		return errors.New("user must not be nil", errors.CategoryValidation)
	}

	if err := user.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid user record").
			WithMetadata(map[string]any{"username": user.Username})
	}

	now := time.Now()
	if user.CreatedAt == nil {
		user.CreatedAt = &now
	}
	if user.UpdatedAt == nil {
		user.UpdatedAt = &now
	}

	if err := m.store.Insert(ctx, user.Username, userDocument(user)); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			m.logger.Debug("duplicate username on create", "username", user.Username)
		}
		return err
	}

	return nil
}

// Get returns the record stored under username. Absence is reported as
// ErrUserNotFound, never a panic; a present but malformed document
// fails with a typed decode error.
func (m *UserManager) Get(ctx context.Context, username string) (*User, error) {
	doc, err := m.store.Get(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, withMetadata(ErrUserNotFound, map[string]any{"username": username})
		}
		return nil, err
	}

	return decodeUser(doc)
}

// Update applies a partial merge of the given fields onto the existing
// record. The username key itself cannot be changed.
func (m *UserManager) Update(ctx context.Context, username string, fields Document) error {
	if len(fields) == 0 {
		return nil
	}

	sanitized := make(Document, len(fields)+1)
	for k, v := range fields {
		if k == fieldKey || k == fieldUsername {
			continue
		}
		sanitized[k] = v
	}
	sanitized[fieldUpdatedAt] = time.Now()

	if err := m.store.Update(ctx, username, sanitized); err != nil {
		if errors.Is(err, ErrNotFound) {
			return withMetadata(ErrUserNotFound, map[string]any{"username": username})
		}
		return err
	}

	return nil
}

// SetActive flips the account's active flag.
func (m *UserManager) SetActive(ctx context.Context, username string, active bool) error {
	return m.Update(ctx, username, Document{fieldIsActive: active})
}

// Save persists the full record under its username, replacing any
// existing document.
func (m *UserManager) Save(ctx context.Context, user *User) error {
	if user == nil {
		return errors.New("user must not be nil", errors.CategoryValidation)
	}

	if err := user.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid user record").
			WithMetadata(map[string]any{"username": user.Username})
	}

	now := time.Now()
	user.UpdatedAt = &now

	return m.store.Set(ctx, user.Username, userDocument(user))
}

// Delete removes the record stored under username. The delete is
// idempotent: removing an absent username succeeds, so callers cannot
// learn from this call whether the record existed.
func (m *UserManager) Delete(ctx context.Context, username string) error {
	return m.store.Delete(ctx, username)
}

// List returns every user record, unordered and unpaginated. Acceptable
// only while the collection is small; large collections need a
// pagination contract this store does not offer.
func (m *UserManager) List(ctx context.Context) ([]*User, error) {
	docs, err := m.store.All(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*User, 0, len(docs))
	for _, doc := range docs {
		user, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, user)
	}

	return records, nil
}
