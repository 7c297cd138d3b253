package database

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// NewRedis parses a redis:// URL and waits until the server answers.
func NewRedis(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	err = waitReady(ctx, "redis", logger, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
