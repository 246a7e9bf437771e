package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seafood-erp/seafood-erp/internal/shared"
)

const notFoundMarker = "notfound"

// Cache keeps read-through copies of products in Redis. A missing product is remembered for a
// short time so repeated lookups of bad ids do not reach the database.
type Cache struct {
	client      *redis.Client
	ttl         time.Duration
	notFoundTTL time.Duration
	logger      *slog.Logger
}

// NewCache constructs the product cache. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, notFoundTTL: time.Minute, logger: logger}
}

func productKey(id int64) string {
	return "catalog:product:" + strconv.FormatInt(id, 10)
}

// Get returns the cached product or calls load and stores the result. Redis failures fall back
// to load.
func (c *Cache) Get(ctx context.Context, id int64, load func(context.Context, int64) (Product, error)) (Product, error) {
	if c == nil || c.client == nil {
		return load(ctx, id)
	}
	key := productKey(id)
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return Product{}, shared.ErrNotFound
		}
		var p Product
		if err := json.Unmarshal(data, &p); err == nil {
			return p, nil
		}
		c.logger.Warn("catalog cache: decode product", slog.Int64("product_id", id), slog.Any("error", err))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("catalog cache: get", slog.Int64("product_id", id), slog.Any("error", err))
	}

	p, err := load(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			if setErr := c.client.Set(ctx, key, notFoundMarker, c.notFoundTTL).Err(); setErr != nil {
				c.logger.Warn("catalog cache: remember miss", slog.Int64("product_id", id), slog.Any("error", setErr))
			}
		}
		return Product{}, err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return p, nil
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache: set", slog.Int64("product_id", id), slog.Any("error", err))
	}
	return p, nil
}

// Invalidate drops the cached copies of ids.
func (c *Cache) Invalidate(ctx context.Context, ids ...int64) {
	if c == nil || c.client == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("catalog cache: invalidate", slog.Any("product_ids", ids), slog.Any("error", err))
	}
}
