package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"poi-cluster/internal/logger"
	"poi-cluster/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL 聚合结果缓存时长
const DefaultCacheTTL = 10 * time.Minute

// clusterCache：按视口、宽度与索引代号缓存聚合结果；rc 为 nil 时全部未命中
type clusterCache struct {
	rc  *redis.Client
	ttl time.Duration
}

// cacheKey 坐标固定 5 位小数；索引重建后代号变化，旧键自然失效
func cacheKey(gen int64, q viewportQuery) string {
	return fmt.Sprintf("clusters:g%d:%.5f:%.5f:%.5f:%.5f:%.0f", gen, q.West, q.South, q.East, q.North, q.Width)
}

func (c clusterCache) get(ctx context.Context, key string) ([]Cluster, bool) {
	if c.rc == nil {
		return nil, false
	}
	s, err := c.rc.Get(ctx, key).Result()
	if err != nil || s == "" {
		if err != nil && err != redis.Nil {
			logger.L().Debug("cluster_cache_get_error", "key", key, "err", err)
		}
		metrics.RedisMissesTotal.Inc()
		return nil, false
	}
	var out []Cluster
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		metrics.RedisMissesTotal.Inc()
		return nil, false
	}
	metrics.RedisHitsTotal.Inc()
	return out, true
}

func (c clusterCache) set(ctx context.Context, key string, cs []Cluster) {
	if c.rc == nil {
		return
	}
	b, err := json.Marshal(cs)
	if err != nil {
		return
	}
	ttl := c.ttl
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if err := c.rc.Set(ctx, key, string(b), ttl).Err(); err != nil {
		logger.L().Debug("cluster_cache_set_error", "key", key, "err", err)
	}
}
