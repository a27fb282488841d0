package cache

import (
	"context"
	"encoding/json"
	"time"

	"speech-coach-demo/backend/internal/models"
	"speech-coach-demo/backend/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// HistoryCache caches conversation history per owner (user or temporary
// session) in Redis. A disabled or unreachable cache degrades to misses;
// the database stays authoritative.
type HistoryCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// Options configures the history cache
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewHistoryCache creates a Redis-backed history cache. Returns nil when
// addr is empty; all methods are nil-safe.
func NewHistoryCache(opts Options, log *logger.Logger) *HistoryCache {
	if opts.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ttl := opts.TTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	return &HistoryCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Get returns the cached history for an owner ID, or a miss.
func (c *HistoryCache) Get(ctx context.Context, ownerID string) ([]models.Message, bool) {
	if c == nil || ownerID == "" {
		return nil, false
	}

	raw, err := c.client.Get(ctx, historyKey(ownerID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug("history cache read failed", "owner", ownerID, "error", err.Error())
		}
		return nil, false
	}

	var messages []models.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		c.log.Warn("history cache entry corrupt, dropping", "owner", ownerID, "error", err.Error())
		c.client.Del(ctx, historyKey(ownerID))
		return nil, false
	}

	return messages, true
}

// Set stores the history for an owner ID.
func (c *HistoryCache) Set(ctx context.Context, ownerID string, messages []models.Message) {
	if c == nil || ownerID == "" {
		return
	}

	raw, err := json.Marshal(messages)
	if err != nil {
		c.log.Warn("history cache marshal failed", "owner", ownerID, "error", err.Error())
		return
	}

	if err := c.client.Set(ctx, historyKey(ownerID), raw, c.ttl).Err(); err != nil {
		c.log.Debug("history cache write failed", "owner", ownerID, "error", err.Error())
	}
}

// Invalidate drops the cached history for the given owner IDs. Empty IDs
// are skipped.
func (c *HistoryCache) Invalidate(ctx context.Context, ownerIDs ...string) {
	if c == nil {
		return
	}

	for _, id := range ownerIDs {
		if id == "" {
			continue
		}
		if err := c.client.Del(ctx, historyKey(id)).Err(); err != nil {
			c.log.Debug("history cache invalidate failed", "owner", id, "error", err.Error())
		}
	}
}

// Ping checks connectivity to Redis.
func (c *HistoryCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func historyKey(ownerID string) string {
	return "history:" + ownerID
}
