package kvstore

import (
	"context"
	"fmt"

	"github.com/questlines/engine/pkg/config"
)

// RedisKeyPrefix namespaces every key written by the redis driver.
const RedisKeyPrefix = "questlines:"

// Open builds the store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreFile:
		return NewFileStore(cfg.StorePath)
	case config.StoreRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, RedisKeyPrefix)
	case config.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
