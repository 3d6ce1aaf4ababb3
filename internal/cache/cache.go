package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultTTL 缓存条目的默认过期时间
const DefaultTTL = 3600 * time.Second

// Cache 统一的 TTL 键值缓存接口
// 缓存永远不是权威数据源，任何条目随时可能消失并能从持久层重建
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	Delete(ctx context.Context, key string)
}

// KeyURL 短码映射的缓存键
func KeyURL(shortCode string) string {
	return "url:" + shortCode
}

// KeyAnalytics 统计快照的缓存键
func KeyAnalytics(shortLinkID uint) string {
	return fmt.Sprintf("analytics:%d", shortLinkID)
}

// redisCache 基于 Redis 的实现
// 失败即放行：任何传输错误只记日志，读退化为未命中，写静默丢弃
type redisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewRedis 创建 Redis 缓存
func NewRedis(rdb *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisCache{rdb: rdb, ttl: ttl, logger: logger.Named("cache")}
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warnf("缓存读取失败 key=%s: %v", key, err)
		}
		return "", false
	}
	return val, true
}

func (c *redisCache) Set(ctx context.Context, key, value string) {
	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warnf("缓存写入失败 key=%s: %v", key, err)
	}
}

func (c *redisCache) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logger.Warnf("缓存删除失败 key=%s: %v", key, err)
	}
}
