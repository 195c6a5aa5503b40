package facts

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "t1", ItemsIDList)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, SetJSON(ctx, s, "t1", ItemsIDList, map[string]int{"I1": 2}, time.Hour))

	var got map[string]int
	ok, err = GetJSON(ctx, s, "t1", ItemsIDList, &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, map[string]int{"I1": 2}, got)
}

func TestRedisStore_TTL(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "t1", SelectedPrice, []byte(`100`), time.Minute))

	mr.FastForward(2 * time.Minute)

	_, ok, err := s.Get(ctx, "t1", SelectedPrice)
	require.NoError(t, err)
	require.False(t, ok, "fact should expire with its TTL")
}

func TestRedisStore_Unreachable(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()

	_, _, err := s.Get(context.Background(), "t1", ProviderID)
	require.Error(t, err, "connection failure is an error, not absence")
}
