package swisspost

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LookupCache is a bounded TTL memo of successful autocomplete lookups.
// Negative results and failures are never cached.
type LookupCache struct {
	entries *expirable.LRU[string, any]
}

// NewLookupCache returns nil when size <= 0, which disables caching.
func NewLookupCache(size int, ttl time.Duration) *LookupCache {
	if size <= 0 {
		return nil
	}
	return &LookupCache{entries: expirable.NewLRU[string, any](size, nil, ttl)}
}

func lookupKey(operation string, parts ...string) string {
	return operation + "\x00" + strings.Join(parts, "\x00")
}

func (lc *LookupCache) get(key string) (any, bool) {
	if lc == nil {
		return nil, false
	}
	return lc.entries.Get(key)
}

func (lc *LookupCache) add(key string, value any) {
	if lc == nil {
		return
	}
	lc.entries.Add(key, value)
}

// Len số entry hiện có
func (lc *LookupCache) Len() int {
	if lc == nil {
		return 0
	}
	return lc.entries.Len()
}

// Purge xoá toàn bộ cache
func (lc *LookupCache) Purge() {
	if lc == nil {
		return
	}
	lc.entries.Purge()
}
