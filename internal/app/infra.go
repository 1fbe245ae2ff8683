package app

import (
	"context"

	"github.com/ishanbilolikar/pizza42-backend/internal/config"
	"github.com/ishanbilolikar/pizza42-backend/internal/logger"
	"github.com/ishanbilolikar/pizza42-backend/internal/redis"
)

type Infra struct {
	Redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}

	logger.Info("redis ready", map[string]any{
		"addr": cfg.RedisAddr,
	})

	return &Infra{
		Redis: redisClient,
	}, nil
}

func (i *Infra) Close() error {
	return i.Redis.Close()
}
