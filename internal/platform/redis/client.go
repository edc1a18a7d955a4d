// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package redis connects the pub/sub bus that carries message.sent and
// message.read events to websocket subscribers. Nothing durable lives here.
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pub/sub holds one long-lived connection per subscriber; publishes are short.
const (
	poolSize     = 10
	minIdleConns = 2
	maxIdleConns = 5
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

// NewClient connects to redisURL and pings once before returning.
func NewClient(ctx stdctx.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	options, err := newOptions(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(options)

	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", options.Addr),
		slog.Int("db", options.DB),
		slog.Int("pool_size", options.PoolSize),
	)

	return client, nil
}

func newOptions(redisURL string) (*redis.Options, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	options.PoolSize = poolSize
	options.MinIdleConns = minIdleConns
	options.MaxIdleConns = maxIdleConns
	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	return options, nil
}

// Ping verifies that the Redis client is healthy.
func Ping(ctx stdctx.Context, client *redis.Client) error {
	pingCtx, cancel := stdctx.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}
