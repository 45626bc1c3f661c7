// Package cache holds the redis-backed settings cache.  The operator
// settings are read on nearly every request and on every monitor pass,
// so they are served from redis (or process memory when redis is not
// configured) and written through to the database on change.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kunugida/reservation-queue/internal/model"
	"github.com/kunugida/reservation-queue/internal/scheduler"
)

const settingsKey = "settings:base"

// SettingsCache serves operator settings from redis with the database
// as the source of truth.  When rdb is nil the cache degrades to an
// in-process copy guarded by a mutex; reads still hit the database on
// a cold start and writes still persist.
type SettingsCache struct {
	store scheduler.Store
	rdb   *redis.Client
	ttl   time.Duration

	mu  sync.RWMutex
	mem *model.Settings
}

var _ scheduler.SettingsProvider = (*SettingsCache)(nil)

// NewSettingsCache returns a cache over the given store.  rdb may be
// nil.  ttl bounds how stale a redis entry may get if a write-through
// is lost; zero means entries never expire.
func NewSettingsCache(store scheduler.Store, rdb *redis.Client, ttl time.Duration) *SettingsCache {
	return &SettingsCache{store: store, rdb: rdb, ttl: ttl}
}

// Get returns the current settings, preferring the cache.
func (c *SettingsCache) Get(ctx context.Context) (model.Settings, error) {
	if c.rdb != nil {
		if bs, err := c.rdb.Get(ctx, settingsKey).Bytes(); err == nil {
			var s model.Settings
			if err := json.Unmarshal(bs, &s); err == nil {
				return s, nil
			}
			// Corrupt entry; fall through to the database and rewrite.
		}
	} else {
		c.mu.RLock()
		mem := c.mem
		c.mu.RUnlock()
		if mem != nil {
			return *mem, nil
		}
	}

	s, err := c.store.GetSettings(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	c.fill(ctx, s)
	return s, nil
}

// Save applies the partial update to the database and refreshes the
// cache with the resulting snapshot.
func (c *SettingsCache) Save(ctx context.Context, upd scheduler.SettingsUpdate) error {
	if err := c.store.UpdateSettings(ctx, upd); err != nil {
		return err
	}
	s, err := c.store.GetSettings(ctx)
	if err != nil {
		// The write landed; the cache will repopulate on the next miss.
		c.invalidate(ctx)
		return nil
	}
	c.fill(ctx, s)
	return nil
}

// Invalidate drops the cached copy so the next Get reloads from the
// database.
func (c *SettingsCache) Invalidate(ctx context.Context) {
	c.invalidate(ctx)
}

func (c *SettingsCache) fill(ctx context.Context, s model.Settings) {
	if c.rdb != nil {
		bs, err := json.Marshal(s)
		if err != nil {
			return
		}
		if err := c.rdb.Set(ctx, settingsKey, bs, c.ttl).Err(); err != nil {
			log.Printf("settings cache: redis set failed: %v", err)
		}
		return
	}
	c.mu.Lock()
	c.mem = &s
	c.mu.Unlock()
}

func (c *SettingsCache) invalidate(ctx context.Context) {
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, settingsKey).Err(); err != nil {
			log.Printf("settings cache: redis del failed: %v", err)
		}
		return
	}
	c.mu.Lock()
	c.mem = nil
	c.mu.Unlock()
}
