package labelstore

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/reviewsummary/internal/labeldoc"
)

func newSQLiteStore(t *testing.T, maxBytes int64) *SQLiteStore {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewSQLiteStore(db, maxBytes)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()), "migrate is idempotent")
	return s
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore(0)) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t, 0)) })
}

func TestStore_CreateGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		body := []byte(`{"S":{"b":"B","a":"A"}}`)

		d, err := s.Create(ctx, "  loan application ", body)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, d.ID)
		assert.Equal(t, "loan application", d.Name)
		assert.Equal(t, 1, d.Version)
		assert.Equal(t, labeldoc.Digest(body), d.Digest)
		assert.Equal(t, len(body), d.Size)
		assert.False(t, d.CreatedAt.IsZero())

		got, err := s.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, d, got)
		assert.Equal(t, string(body), string(got.Body), "body is stored verbatim")

		_, err = s.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_UpdateBumpsVersion(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		d, err := s.Create(ctx, "doc", []byte(`{"S":{"a":"A"}}`))
		require.NoError(t, err)

		newBody := []byte(`{"S":{"a":"Renamed"}}`)
		u, err := s.Update(ctx, d.ID, Update{Name: "doc v2", Body: newBody})
		require.NoError(t, err)
		assert.Equal(t, 2, u.Version)
		assert.Equal(t, "doc v2", u.Name)
		assert.Equal(t, labeldoc.Digest(newBody), u.Digest)
		assert.NotEqual(t, d.Digest, u.Digest)
		assert.Equal(t, d.CreatedAt, u.CreatedAt)

		_, err = s.Update(ctx, d.ID, Update{Name: "doc", Body: newBody, IfVersion: 1})
		assert.ErrorIs(t, err, ErrVersionConflict)

		u, err = s.Update(ctx, d.ID, Update{Name: "doc", Body: newBody, IfVersion: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, u.Version)

		_, err = s.Update(ctx, uuid.New(), Update{Name: "x", Body: newBody})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_Delete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		d, err := s.Create(ctx, "doc", []byte(`{}`))
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, d.ID))
		_, err = s.Get(ctx, d.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, d.ID), ErrNotFound)
	})
}

func TestStore_List(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, name := range []string{"loan-b", "intake", "loan-a", "loan-c"} {
			_, err := s.Create(ctx, name, []byte(`{}`))
			require.NoError(t, err)
		}

		docs, total, err := s.List(ctx, ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Equal(t, []string{"intake", "loan-a", "loan-b", "loan-c"}, names(docs))

		docs, total, err = s.List(ctx, ListOptions{NamePrefix: "loan-", Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Equal(t, []string{"loan-b", "loan-c"}, names(docs))

		docs, _, err = s.List(ctx, ListOptions{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestStore_Validation(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.Create(ctx, " ", []byte(`{}`))
		assert.ErrorIs(t, err, ErrInvalidName)

		_, err = s.Create(ctx, "doc", []byte(`{"a":`))
		assert.Error(t, err)

		big := []byte(`{"a":"` + strings.Repeat("x", DefaultMaxBytes) + `"}`)
		_, err = s.Create(ctx, "doc", big)
		require.ErrorIs(t, err, ErrTooLarge)
		assert.Contains(t, err.Error(), "1.0 MiB")
	})
}

func TestStore_AcceptsLargeDocuments(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		body := []byte(`{"a":"` + strings.Repeat("x", 200<<10) + `"}`)
		d, err := s.Create(context.Background(), "big", body)
		require.NoError(t, err)
		assert.Equal(t, len(body), d.Size)
	})
}

func TestNormalizeMaxBytes(t *testing.T) {
	assert.EqualValues(t, DefaultMaxBytes, NormalizeMaxBytes(0))
	assert.EqualValues(t, MinMaxBytes, NormalizeMaxBytes(1024))
	assert.EqualValues(t, 4<<20, NormalizeMaxBytes(4<<20))
}

func names(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Name
	}
	return out
}
