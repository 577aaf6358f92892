package users_test

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-users"
	"github.com/stretchr/testify/mock"
)

// MockLogger implements users.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// NoopLogger swallows everything. Use it when log calls are not the
// subject of the test.
type NoopLogger struct{}

func (NoopLogger) Debug(string, ...any) {}
func (NoopLogger) Info(string, ...any)  {}
func (NoopLogger) Warn(string, ...any)  {}
func (NoopLogger) Error(string, ...any) {}

// MockStore implements users.Store for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) (users.Document, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(users.Document), args.Error(1)
}

func (m *MockStore) Insert(ctx context.Context, key string, record users.Document) error {
	args := m.Called(ctx, key, record)
	return args.Error(0)
}

func (m *MockStore) Set(ctx context.Context, key string, record users.Document) error {
	args := m.Called(ctx, key, record)
	return args.Error(0)
}

func (m *MockStore) Update(ctx context.Context, key string, fields users.Document) error {
	args := m.Called(ctx, key, fields)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStore) All(ctx context.Context) ([]users.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]users.Document), args.Error(1)
}

// memStore is an in-memory Store with the same atomicity guarantees as
// the Mongo-backed one: Insert either claims the key or reports a
// duplicate, never both for the same key.
type memStore struct {
	mu   sync.Mutex
	docs map[string]users.Document
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]users.Document{}}
}

func (s *memStore) Get(ctx context.Context, key string) (users.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, users.ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (s *memStore) Insert(ctx context.Context, key string, record users.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[key]; ok {
		return users.ErrDuplicateKey
	}
	s.docs[key] = cloneDocument(record)
	return nil
}

func (s *memStore) Set(ctx context.Context, key string, record users.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[key] = cloneDocument(record)
	return nil
}

func (s *memStore) Update(ctx context.Context, key string, fields users.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[key]
	if !ok {
		return users.ErrNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, key)
	return nil
}

func (s *memStore) All(ctx context.Context) ([]users.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]users.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, cloneDocument(doc))
	}
	return out, nil
}

func cloneDocument(doc users.Document) users.Document {
	out := make(users.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

var _ users.Store = (*MockStore)(nil)
var _ users.Store = (*memStore)(nil)

// errTextCode extracts the machine-readable text code from a rich
// error, or "" when err is not one.
func errTextCode(err error) string {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}
