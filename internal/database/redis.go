package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/config"
)

const (
	journalPoolSize    = 4
	journalDialTimeout = 2 * time.Second
	journalIOTimeout   = time.Second
)

// NewRedisClient opens the journal's Redis connection with a small pool and
// short timeouts.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opt.PoolSize = journalPoolSize
	opt.DialTimeout = journalDialTimeout
	opt.ReadTimeout = journalIOTimeout
	opt.WriteTimeout = journalIOTimeout

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, journalDialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opt.Addr, err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Msg("Journal connected")

	return rdb, nil
}
