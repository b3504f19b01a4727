package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "a", []byte(`{"n":1}`)))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, `{"n":1}`, string(got))

	require.NoError(t, s.Set(ctx, "a", []byte(`{"n":2}`)))
	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, `{"n":2}`, string(got))

	require.NoError(t, s.Set(ctx, "b", []byte("x")))
	require.NoError(t, s.Delete(ctx, "a", "b", "never-set"))

	_, err = s.Get(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "b")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx))
	require.NoError(t, Ping(ctx, s))
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "abc", string(again))
	require.Equal(t, 1, s.Len())
}

func TestRedisStoreContract(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	runStoreContract(t, NewRedisStore(rdb))
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	s := NewRedisStore(rdb)
	mr.Close()

	_, err = s.Get(context.Background(), "k")
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, s.Ping(context.Background()), ErrUnavailable)
}

func TestFileStoreContract(t *testing.T) {
	s, err := OpenFileStore(t.TempDir())
	require.NoError(t, err)
	runStoreContract(t, s)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "ta:0:auth_user", []byte(`{"id":"1"}`)))
	require.Equal(t, filepath.Join(dir, "store.json"), s.Path())

	reopened, err := OpenFileStore(dir)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "ta:0:auth_user")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"1"}`, string(got))
}

func TestSQLStoreContract(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	defer s.Close()

	runStoreContract(t, s)
}
