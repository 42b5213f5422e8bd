// internal/adapters/redis/context_cache.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"care-match-workers/internal/common/logger"
	"care-match-workers/internal/matching"
	"care-match-workers/internal/models"

	goredis "github.com/redis/go-redis/v9"
)

const (
	contextKeyPrefix = "match:context:"
	// absentMarker caches "no context recorded" so misses do not reach the database.
	absentMarker = "null"
)

// ContextCache is a read-through cache over a ContextProvider. Cache errors
// never fail a lookup; the source is consulted instead.
type ContextCache struct {
	client goredis.Cmdable
	source matching.ContextProvider
	ttl    time.Duration
	logger logger.Logger
}

func NewContextCache(client goredis.Cmdable, source matching.ContextProvider, ttl time.Duration, log logger.Logger) *ContextCache {
	return &ContextCache{
		client: client,
		source: source,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "context-cache"}),
	}
}

func ContextKey(participantID string) string {
	return contextKeyPrefix + participantID
}

func (c *ContextCache) GetContext(ctx context.Context, participantID string) (*models.DynamicRiskContext, error) {
	key := ContextKey(participantID)

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if cached == absentMarker {
			return nil, nil
		}
		var rc models.DynamicRiskContext
		if jsonErr := json.Unmarshal([]byte(cached), &rc); jsonErr == nil {
			return &rc, nil
		}
		c.logger.Warn("Discarding undecodable cached context", map[string]interface{}{"key": key})
	case errors.Is(err, goredis.Nil):
	default:
		c.logger.Warn("Context cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	rc, err := c.source.GetContext(ctx, participantID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, rc)
	return rc, nil
}

func (c *ContextCache) store(ctx context.Context, key string, rc *models.DynamicRiskContext) {
	value := []byte(absentMarker)
	if rc != nil {
		data, err := json.Marshal(rc)
		if err != nil {
			return
		}
		value = data
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("Context cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
