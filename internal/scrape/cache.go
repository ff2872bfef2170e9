package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/enrich"
	"github.com/JakeFAU/devfeed-crawler/internal/hash/sha256"
)

// Cached memoizes successful scrapes in Redis, keyed by the SHA-256 of the
// page URL.
type Cached struct {
	next   enrich.Scraper
	rdb    redis.UniversalClient
	hasher *sha256.Hasher
	ttl    time.Duration
	logger *zap.Logger
}

// NewCached wraps next. A non-positive ttl keeps entries for a day.
func NewCached(next enrich.Scraper, rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Cached {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, rdb: rdb, hasher: sha256.New("devfeed:scrape:"), ttl: ttl, logger: logger}
}

// Scrape returns the cached text for pageURL or scrapes and stores it. Redis
// failures only cost the cache.
func (c *Cached) Scrape(ctx context.Context, pageURL string) (string, error) {
	key := c.hasher.Key(pageURL)
	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil && cached != "":
		return cached, nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.logger.Warn("scrape cache read failed", zap.String("url", pageURL), zap.Error(err))
	}

	text, err := c.next.Scrape(ctx, pageURL)
	if err != nil {
		return "", err
	}
	if setErr := c.rdb.Set(ctx, key, text, c.ttl).Err(); setErr != nil {
		c.logger.Warn("scrape cache write failed", zap.String("url", pageURL), zap.Error(setErr))
	}
	return text, nil
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Fallback tries Primary and, when it fails or returns nothing, Secondary.
type Fallback struct {
	Primary   enrich.Scraper
	Secondary enrich.Scraper
	Logger    *zap.Logger
}

// Scrape implements enrich.Scraper.
func (f Fallback) Scrape(ctx context.Context, pageURL string) (string, error) {
	text, err := f.Primary.Scrape(ctx, pageURL)
	if err == nil && text != "" {
		return text, nil
	}
	if f.Secondary == nil {
		if err == nil {
			err = ErrNoContent
		}
		return "", err
	}
	if f.Logger != nil {
		f.Logger.Debug("primary scraper failed, trying secondary", zap.String("url", pageURL), zap.Error(err))
	}
	return f.Secondary.Scrape(ctx, pageURL)
}
