package recordsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/recordsvc/codec"
	"github.com/unkn0wn-root/recordsvc/provider"
)

// DefaultCacheTTL is the per-key expiration applied when Set is called
// with ttl == 0.
const DefaultCacheTTL = 300 * time.Second

// Cache is a best-effort read-through cache for values of type V.
// Every operation treats backend unavailability as a soft failure: Get
// reports a miss, Set and Delete become no-ops, and the error is logged.
// The cache must never be a single point of failure for read or write
// correctness.
//
// The cache does not own its Provider: callers that share one provider
// across several caches close the provider themselves.
type Cache[V any] interface {
	Enabled() bool
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// CacheOptions tune a Cache. Namespace, Provider and Codec are required.
type CacheOptions[V any] struct {
	// Required
	Namespace string // key prefix, e.g. "record" => "record:<key>"
	Provider  provider.Provider
	Codec     codec.Codec[V]

	Logger     Logger        // if nil, NopLogger is used
	DefaultTTL time.Duration // 0 => DefaultCacheTTL
}

func NewCache[V any](opts CacheOptions[V]) (Cache[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("recordsvc: cache provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("recordsvc: cache codec is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("recordsvc: cache namespace is required")
	}

	c := &cache[V]{
		ns:       opts.Namespace,
		provider: opts.Provider,
		codec:    opts.Codec,
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.ttl = coalesce[time.Duration](opts.DefaultTTL, DefaultCacheTTL)
	return c, nil
}

// NopCache is the pass-through-to-store implementation of Cache: every
// Get misses and writes are dropped. Wiring it in disables caching
// without touching the service.
type NopCache[V any] struct{}

func (NopCache[V]) Enabled() bool { return false }
func (NopCache[V]) Get(context.Context, string) (V, bool) {
	var zero V
	return zero, false
}
func (NopCache[V]) Set(context.Context, string, V, time.Duration) {}
func (NopCache[V]) Delete(context.Context, string)                {}

type cache[V any] struct {
	ns       string
	provider provider.Provider
	codec    codec.Codec[V]
	log      Logger
	ttl      time.Duration
}

func (c *cache[V]) Enabled() bool { return true }

func (c *cache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	k := c.key(key)
	raw, ok, err := c.provider.Get(ctx, k)
	if err != nil {
		c.log.Warn("cache get failed; treating as miss", Fields{"key": k, "err": err})
		return zero, false
	}
	if !ok {
		return zero, false
	}
	v, err := c.codec.Decode(raw)
	if err != nil {
		// self-heal corrupt entry
		_ = c.provider.Del(ctx, k)
		c.log.Warn("cache entry corrupt; deleted", Fields{"key": k, "err": err})
		return zero, false
	}
	return v, true
}

func (c *cache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.ttl
	}
	k := c.key(key)
	raw, err := c.codec.Encode(value)
	if err != nil {
		c.log.Warn("cache encode failed; skipping set", Fields{"key": k, "err": err})
		return
	}
	if err := c.provider.Set(ctx, k, raw, ttl); err != nil {
		c.log.Warn("cache set failed; skipping", Fields{"key": k, "err": err})
	}
}

func (c *cache[V]) Delete(ctx context.Context, key string) {
	k := c.key(key)
	if err := c.provider.Del(ctx, k); err != nil {
		c.log.Warn("cache delete failed; skipping", Fields{"key": k, "err": err})
	}
}

func (c *cache[V]) key(userKey string) string {
	return c.ns + ":" + userKey
}

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
