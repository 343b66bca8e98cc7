package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kidneysync/platform/pkg/common/logger"
	"github.com/kidneysync/platform/pkg/observability/metrics"
	"github.com/redis/go-redis/v9"
)

// CachedEngine memoizes OCR text in Redis keyed by the upload's content
// hash, so a re-submitted report skips the engine entirely. Cache
// failures are soft: the engine is called and the result returned anyway.
type CachedEngine struct {
	engine Engine
	client *redis.Client
	ttl    time.Duration
}

func NewCachedEngine(engine Engine, client *redis.Client, ttl time.Duration) *CachedEngine {
	return &CachedEngine{engine: engine, client: client, ttl: ttl}
}

func (c *CachedEngine) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	key := cacheKey(data)

	if c.client != nil {
		if cached, err := c.client.Get(ctx, key).Result(); err == nil {
			logger.Log.WithField("key", key).Debug("OCR cache hit")
			metrics.ObserveOCRCacheHit()
			return cached, nil
		} else if err != redis.Nil {
			logger.Log.WithError(err).Warn("OCR cache read failed")
		}
	}

	text, err := c.engine.ExtractText(ctx, data, filename)
	if err != nil {
		return "", err
	}

	if c.client != nil {
		if err := c.client.Set(ctx, key, text, c.ttl).Err(); err != nil {
			logger.Log.WithError(err).Warn("OCR cache write failed")
		}
	}
	return text, nil
}

func cacheKey(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("ocr:text:%s", hex.EncodeToString(sum[:]))
}
