package redis

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/mossy-p/videocall/config"
	"github.com/mossy-p/videocall/internal/users"
)

// Runs only when REDIS_TEST_HOST points at a disposable Redis instance.
func TestStoreAgainstRedis(t *testing.T) {
	host := os.Getenv("REDIS_TEST_HOST")
	if host == "" {
		t.Skip("REDIS_TEST_HOST not set")
	}

	ctx := context.Background()
	s, err := Connect(ctx, config.RedisConfig{Host: host, Port: "6379"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	name := "test-" + uuid.NewString()
	t.Cleanup(func() {
		s.client.Del(ctx, userKey(name))
		s.client.SRem(ctx, onlineKey, name)
	})

	if err := s.Register(ctx, name); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register(ctx, name); !errors.Is(err, users.ErrNameTaken) {
		t.Fatalf("second Register = %v, want ErrNameTaken", err)
	}
	if ok, err := s.Exists(ctx, name); err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}

	if err := s.MarkOnline(ctx, name); err != nil {
		t.Fatalf("MarkOnline: %v", err)
	}
	if ok, _ := s.client.SIsMember(ctx, onlineKey, name).Result(); !ok {
		t.Fatalf("%s not in online set", name)
	}
	if err := s.MarkOffline(ctx, name); err != nil {
		t.Fatalf("MarkOffline: %v", err)
	}
}
