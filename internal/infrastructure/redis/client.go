package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/otp-store/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

const pingTimeout = 1500 * time.Millisecond

// NewClient connects to a single Redis node and verifies it answers PING.
func NewClient(ctx context.Context, cfg *config.Config) (goredis.UniversalClient, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:            cfg.RedisAddr,
		Password:        cfg.RedisPassword,
		DB:              cfg.RedisDB,
		ConnMaxIdleTime: 170 * time.Second,
		DialTimeout:     time.Second,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}
