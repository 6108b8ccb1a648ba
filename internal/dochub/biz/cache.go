package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/dochub/internal/model"
	"github.com/kart-io/dochub/pkg/utils/json"
)

// AnswerCacheConfig 答案缓存配置。
type AnswerCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// AnswerCache 基于 Redis 的答案缓存。
// 缓存键由用户、问题、输出格式和模型共同决定；
// 带显式文档内容的查询不走缓存。
type AnswerCache struct {
	redis  *goredis.Client
	config *AnswerCacheConfig
}

// NewAnswerCache 创建答案缓存实例。
func NewAnswerCache(redis *goredis.Client, config *AnswerCacheConfig) *AnswerCache {
	if config == nil {
		config = &AnswerCacheConfig{
			Enabled:   false,
			TTL:       1 * time.Hour,
			KeyPrefix: "dochub:answer:",
		}
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "dochub:answer:"
	}
	return &AnswerCache{
		redis:  redis,
		config: config,
	}
}

// Cacheable 判断请求是否可以走缓存。
func (c *AnswerCache) Cacheable(req *model.QueryRequest) bool {
	return c.config.Enabled && c.redis != nil && req.DocumentContent == ""
}

// userSegment 返回用户在缓存键中的段，支持按用户批量失效。
func userSegment(userID string) string {
	hash := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(hash[:8])
}

// cacheKey 基于请求生成缓存键（SHA-256 哈希）。
func (c *AnswerCache) cacheKey(req *model.QueryRequest) string {
	payload := fmt.Sprintf("%s|%s|%s|%s", req.UserID, req.Query, req.OutputFormat, req.ModelID)
	hash := sha256.Sum256([]byte(payload))
	return c.config.KeyPrefix + userSegment(req.UserID) + ":" + hex.EncodeToString(hash[:])
}

// Get 从缓存获取答案。未命中返回 (nil, nil)。
func (c *AnswerCache) Get(ctx context.Context, req *model.QueryRequest) (*model.QueryResult, error) {
	if !c.Cacheable(req) {
		return nil, nil
	}

	key := c.cacheKey(req)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			logger.Debugw("answer cache miss", "key", key)
			return nil, nil
		}
		logger.Warnw("failed to get from answer cache", "error", err.Error(), "key", key)
		return nil, err
	}

	var result model.QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("failed to unmarshal cached answer", "error", err.Error(), "key", key)
		// 删除损坏的缓存
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}

	logger.Infow("answer cache hit", "key", key, "answer_length", len(result.Answer))
	result.Cached = true
	return &result, nil
}

// Set 将答案写入缓存。
func (c *AnswerCache) Set(ctx context.Context, req *model.QueryRequest, result *model.QueryResult) error {
	if !c.Cacheable(req) || result == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	key := c.cacheKey(req)
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set answer cache", "error", err.Error(), "key", key)
		return err
	}
	return nil
}

// Invalidate 清空某个用户的缓存答案。
// 文档变更后调用，避免返回基于旧内容的答案。
func (c *AnswerCache) Invalidate(ctx context.Context, userID string) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	var cursor uint64
	pattern := c.config.KeyPrefix + userSegment(userID) + ":*"
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return nil
}
