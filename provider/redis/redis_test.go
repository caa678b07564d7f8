package redis_test

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/querysync/provider/redis"
)

func TestNewRequiresClient(t *testing.T) {
	_, err := redis.New(redis.Config{})
	assert.ErrorIs(t, err, redis.ErrNilClient)
}

func TestCloseLeavesSharedClientOpen(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = rdb.Close() })

	p, err := redis.New(redis.Config{Client: rdb, Prefix: "t:"})
	require.NoError(t, err)
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))

	// the client was not closed, so closing it here still succeeds
	assert.NoError(t, rdb.Close())
}

func TestClearRefusesEmptyPrefix(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = rdb.Close() })

	p, err := redis.New(redis.Config{Client: rdb})
	require.NoError(t, err)
	_, err = p.Clear(context.Background())
	assert.Error(t, err)
}
