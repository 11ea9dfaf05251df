package redis_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yndnr/ssess-go/internal/storage"
	"github.com/yndnr/ssess-go/internal/storage/redis"
	"github.com/yndnr/ssess-go/internal/storage/storagetest"
)

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		mr := miniredis.RunT(t)
		client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		return redis.NewWithClient(client, redis.Config{}, nil)
	})
}

func TestLockTakeover(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := redis.NewWithClient(client, redis.Config{LockTTL: time.Second}, nil)
	storagetest.RunLockTakeover(t, s, func() { mr.FastForward(2 * time.Second) })
}
