// Package cache is a thin redis layer for slow-changing reads like the
// model catalog. It is deliberately optional: with no REDIS_HOST set every
// call is a miss and the services run straight off the database.
// Availability results are never cached here; they must always reflect the
// live rent table.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to redis per REDIS_HOST/REDIS_PORT. Returns a disabled
// cache when REDIS_HOST is unset or the server cannot be reached.
func New(ttl time.Duration) *Cache {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return &Cache{ttl: ttl}
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable, running without cache: %v", err)
		return &Cache{ttl: ttl}
	}

	log.Printf("Cache connected to redis at %s:%s", host, port)
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Get loads the cached JSON value into dest and reports a hit.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if !c.Enabled() {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

// Set stores val as JSON under key. Failures only cost the cache hit.
func (c *Cache) Set(ctx context.Context, key string, val interface{}) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("Cache set failed for %s: %v", key, err)
	}
}

// Invalidate drops a key after the underlying data changed.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		log.Printf("Cache invalidate failed for %s: %v", key, err)
	}
}
