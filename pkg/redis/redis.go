package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aitachi/medical-agent-sub000/internal/config"
	"github.com/redis/go-redis/v9"
)

// pingTimeout 启动连通性检查的上限，避免 Redis 不可达时无限等待
const pingTimeout = 5 * time.Second

// NewRedisClient 创建 Redis 客户端并做启动连通性检查
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	return client, nil
}
