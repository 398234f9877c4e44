package redisStore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("RedisStore")

type Store struct {
	client *redis.Client
	Type   int
}

// NewStore connects to one logical redis database and pings it.
func NewStore(ctx context.Context, cfg config.RedisConfig, dbType int) (*Store, error) {
	newClient := redis.NewClient(&redis.Options{
		Addr:                  cfg.Addr,
		Password:              cfg.Password,
		DB:                    dbType,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := newClient.Ping(pingCtx).Err(); err != nil {
		newClient.Close()
		logger.Error("Redis is offline", "addr", cfg.Addr, "db", dbType, "error", err)
		return nil, fmt.Errorf("redis %s db %d: %w", cfg.Addr, dbType, err)
	}

	logger.Info("Redis store initialised", "addr", cfg.Addr, "db", dbType)
	return &Store{client: newClient, Type: dbType}, nil
}

func (s *Store) Close() error {
	logger.Info("Closing Redis store", "db", s.Type)
	return s.client.Close()
}

// NewTestStore wraps an existing client, typically one pointed at miniredis.
func NewTestStore(client *redis.Client) *Store {
	return &Store{client: client}
}
