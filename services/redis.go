package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"flood-report-api/config"

	"github.com/redis/go-redis/v9"
)

// EventsChannel carries classification results to websocket subscribers.
const EventsChannel = "floodreport:classifications"

// TaskList is the Redis list the upload path pushes classification work onto.
const TaskList = "floodreport:classify"

type RedisService struct {
	client *redis.Client
}

func NewRedisService(cfg config.RedisConfig) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Retry up to 10 times (covers sidecar/compose startup ordering)
	var lastErr error
	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			return &RedisService{client: client}, nil
		}
		slog.Warn("redis ping failed", "attempt", i+1, "error", lastErr)
		time.Sleep(2 * time.Second)
	}

	return &RedisService{client: nil}, fmt.Errorf("redis ping failed after 10 attempts: %w", lastErr)
}

func (s *RedisService) Client() *redis.Client {
	return s.client
}

func (s *RedisService) Available() bool {
	return s.client != nil
}

func (s *RedisService) Publish(ctx context.Context, channel string, message interface{}) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, channel, data).Err()
}

func (s *RedisService) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if s.client == nil {
		return nil
	}
	return s.client.Subscribe(ctx, channel)
}

func (s *RedisService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
