package services

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-feedback-bot/internal/repo"
)

// newTestKV starts an in-process Redis and returns a KV bound to it plus a
// unique key prefix per test.
func newTestKV(t *testing.T) (*miniredis.Miniredis, repo.KV, string) {
	t.Helper()
	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(srv.Close)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, repo.NewRedisKV(client), "test-" + uuid.NewString()
}
