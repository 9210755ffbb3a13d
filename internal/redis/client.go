package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/mossy-p/videocall/config"
	"github.com/mossy-p/videocall/internal/users"
	"github.com/redis/go-redis/v9"
)

const (
	userTTL   = 24 * time.Hour
	onlineKey = "users:online"
)

// Store keeps registrations and the online roster in Redis. Registrations
// expire after userTTL; nothing here is meant to be durable.
type Store struct {
	client *redis.Client
}

// Connect initializes the Redis client
func Connect(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func userKey(name string) string {
	return "user:" + name
}

func (s *Store) Register(ctx context.Context, name string) error {
	created, err := s.client.SetNX(ctx, userKey(name), time.Now().Unix(), userTTL).Result()
	if err != nil {
		return fmt.Errorf("register %q: %w", name, err)
	}
	if !created {
		return users.ErrNameTaken
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	n, err := s.client.Exists(ctx, userKey(name)).Result()
	if err != nil {
		return false, fmt.Errorf("lookup %q: %w", name, err)
	}
	return n > 0, nil
}

func (s *Store) MarkOnline(ctx context.Context, name string) error {
	if err := s.client.SAdd(ctx, onlineKey, name).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, onlineKey, userTTL).Err()
}

func (s *Store) MarkOffline(ctx context.Context, name string) error {
	return s.client.SRem(ctx, onlineKey, name).Err()
}

var (
	_ users.Store    = (*Store)(nil)
	_ users.Presence = (*Store)(nil)
)
