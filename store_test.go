package users_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connectTestStore dials the MongoDB named by MONGO_URI and returns a
// store over a collection unique to this test run. Tests that need a
// live server are skipped when the variable is unset.
func connectTestStore(t *testing.T) *users.MongoStore {
	t.Helper()

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping MongoDB store tests")
	}

	cfg := users.Config{
		MongoURI:        uri,
		DatabaseName:    "users_test",
		UsersCollection: fmt.Sprintf("users_%d", time.Now().UnixNano()),
	}
	cfg.EnsureDefaults()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, disconnect, err := users.ConnectMongoStore(ctx, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = disconnect(ctx)
	})

	return store
}

func TestMongoStore_CRUD(t *testing.T) {
	store := connectTestStore(t)
	ctx := context.Background()

	t.Run("get on an absent key reports not found", func(t *testing.T) {
		doc, err := store.Get(ctx, "absent")

		assert.Nil(t, doc)
		assert.ErrorIs(t, err, users.ErrNotFound)
	})

	t.Run("insert then get round-trips the record", func(t *testing.T) {
		in := users.Document{
			"password":   "$2a$14$notsecretbutpresent",
			"is_active":  true,
			"created_at": time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		}
		require.NoError(t, store.Insert(ctx, "alice", in))

		out, err := store.Get(ctx, "alice")
		require.NoError(t, err)

		assert.Equal(t, "alice", out["_id"])
		assert.Equal(t, "$2a$14$notsecretbutpresent", out["password"])
		assert.Equal(t, true, out["is_active"])
		_, isTime := out["created_at"].(time.Time)
		assert.True(t, isTime, "stored dates come back as time.Time")
	})

	t.Run("insert on an existing key reports a duplicate", func(t *testing.T) {
		err := store.Insert(ctx, "alice", users.Document{
			"password":  "$2a$14$different",
			"is_active": false,
		})

		assert.ErrorIs(t, err, users.ErrDuplicateKey)

		// The original record is untouched.
		out, getErr := store.Get(ctx, "alice")
		require.NoError(t, getErr)
		assert.Equal(t, "$2a$14$notsecretbutpresent", out["password"])
	})

	t.Run("update merges fields without replacing the record", func(t *testing.T) {
		require.NoError(t, store.Update(ctx, "alice", users.Document{"email": "alice@example.com"}))

		out, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", out["email"])
		assert.Equal(t, "$2a$14$notsecretbutpresent", out["password"])
	})

	t.Run("update on an absent key reports not found", func(t *testing.T) {
		err := store.Update(ctx, "absent", users.Document{"email": "x@example.com"})
		assert.ErrorIs(t, err, users.ErrNotFound)
	})

	t.Run("set replaces the record", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "alice", users.Document{
			"password":  "$2a$14$replaced",
			"is_active": false,
		}))

		out, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "$2a$14$replaced", out["password"])
		assert.NotContains(t, out, "email", "set replaces, it does not merge")
	})

	t.Run("all returns every record", func(t *testing.T) {
		require.NoError(t, store.Insert(ctx, "bob", users.Document{
			"password":  "$2a$14$bobhash",
			"is_active": true,
		}))

		docs, err := store.All(ctx)
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "bob"))
		require.NoError(t, store.Delete(ctx, "bob"))

		_, err := store.Get(ctx, "bob")
		assert.ErrorIs(t, err, users.ErrNotFound)
	})
}

func TestMongoStore_ConcurrentInsert(t *testing.T) {
	store := connectTestStore(t)
	ctx := context.Background()

	// Two racing creates for the same key: exactly one may win, the
	// other must see a duplicate, and the surviving record must belong
	// to the winner.
	const attempts = 8

	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.Insert(ctx, "raced", users.Document{
				"password":  fmt.Sprintf("$2a$14$attempt-%d", i),
				"is_active": true,
				"attempt":   i,
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, users.ErrDuplicateKey)
		}
	}
	assert.Equal(t, 1, winners, "exactly one concurrent create can succeed")

	doc, err := store.Get(ctx, "raced")
	require.NoError(t, err)
	assert.NotNil(t, doc["attempt"])
}

func TestMongoStore_Timeout(t *testing.T) {
	store := connectTestStore(t)

	// An already-expired context must surface as a typed timeout, not
	// hang or panic.
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := store.Get(ctx, "whatever")
	require.Error(t, err)
	assert.NotErrorIs(t, err, users.ErrNotFound,
		"a timed out lookup must not masquerade as absence")
}
