package providers

import (
	"crewboard/internal/structures"
	"time"
	"unsafe"

	"github.com/coocood/freecache"
)

type CacheProviderInterface interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	TTL() time.Duration
}

// CacheProvider is a process-wide byte cache with a single declared TTL.
// Entries older than the TTL are never returned.
type CacheProvider struct {
	cache *freecache.Cache
	ttl   int
}

func NewCacheProvider(conf *structures.Config, logger Logger) CacheProviderInterface {
	return newCacheProvider(conf, logger, nil)
}

// NewCacheProviderWithTimer is NewCacheProvider with a custom clock, mainly for
// expiry tests.
func NewCacheProviderWithTimer(conf *structures.Config, logger Logger, timer freecache.Timer) CacheProviderInterface {
	return newCacheProvider(conf, logger, timer)
}

func newCacheProvider(conf *structures.Config, logger Logger, timer freecache.Timer) CacheProviderInterface {
	if !conf.Cache.Enabled || conf.Cache.Size <= 0 {
		logger.Infof(TypeApp, "Cache disabled")
		return &noopCache{}
	}

	sizeBytes := conf.Cache.Size * 1024 * 1024
	ttl := max(int(conf.Cache.TTL.Seconds()), 1)

	logger.Infof(TypeApp, "Cache initialized: %dMB, TTL=%ds", conf.Cache.Size, ttl)

	var cache *freecache.Cache
	if timer != nil {
		cache = freecache.NewCacheCustomTimer(sizeBytes, timer)
	} else {
		cache = freecache.NewCache(sizeBytes)
	}

	return &CacheProvider{
		cache: cache,
		ttl:   ttl,
	}
}

// unsafeStringToBytes converts string to []byte without allocation.
// Safe when the result is only read (not modified), which is the case
// for freecache; it copies keys internally.
func unsafeStringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func (c *CacheProvider) Get(key string) ([]byte, bool) {
	val, err := c.cache.Get(unsafeStringToBytes(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *CacheProvider) Set(key string, value []byte) {
	_ = c.cache.Set(unsafeStringToBytes(key), value, c.ttl)
}

func (c *CacheProvider) TTL() time.Duration {
	return time.Duration(c.ttl) * time.Second
}

type noopCache struct{}

func (n *noopCache) Get(_ string) ([]byte, bool) { return nil, false }
func (n *noopCache) Set(_ string, _ []byte)      {}
func (n *noopCache) TTL() time.Duration          { return 0 }
