package whatsapp

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"go.mau.fi/whatsmeow/types"

	"github.com/nattydev/whatsguard/pkg/log"
)

// GroupFetcher is the group-metadata RPC. *Session implements it.
type GroupFetcher interface {
	GroupInfo(ctx context.Context, group types.JID) (*types.GroupInfo, error)
}

type groupCacheEntry struct {
	info     *types.GroupInfo // nil marks a negative entry (forbidden group)
	storedAt time.Time
}

// GroupCache is the two-tier accessor over group metadata. Cached serves
// policy checks where staleness within the TTL is tolerable; Live always hits
// the transport and is the only acceptable source for authority decisions.
// Neither path ever returns an error: a nil result means "metadata
// unavailable" and callers skip the dependent feature.
type GroupCache struct {
	fetcher GroupFetcher
	ttl     time.Duration

	mu      sync.RWMutex
	entries map[types.JID]groupCacheEntry
	flight  singleflight.Group
}

const DefaultGroupCacheTTL = 60 * time.Second

func NewGroupCache(fetcher GroupFetcher, ttl time.Duration) *GroupCache {
	if ttl <= 0 {
		ttl = DefaultGroupCacheTTL
	}
	return &GroupCache{
		fetcher: fetcher,
		ttl:     ttl,
		entries: make(map[types.JID]groupCacheEntry),
	}
}

func (c *GroupCache) lookup(group types.JID) (groupCacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[group]
	return entry, ok
}

func (c *GroupCache) store(group types.JID, info *types.GroupInfo) {
	c.mu.Lock()
	c.entries[group] = groupCacheEntry{info: info, storedAt: time.Now()}
	c.mu.Unlock()
}

func (c *GroupCache) fetch(ctx context.Context, group types.JID) (*types.GroupInfo, error) {
	result, err, _ := c.flight.Do(group.String(), func() (interface{}, error) {
		return c.fetcher.GroupInfo(ctx, group)
	})
	if err != nil {
		return nil, err
	}
	info, _ := result.(*types.GroupInfo)
	return info, nil
}

// Cached returns group metadata no older than the TTL, fetching on a miss.
// A forbidden fetch is negative-cached so repeated checks against a group the
// account lost access to stop hammering the transport. Rate-limit and other
// transport failures fall back to the last known value.
func (c *GroupCache) Cached(ctx context.Context, group types.JID) *types.GroupInfo {
	if group.Server != types.GroupServer {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	entry, ok := c.lookup(group)
	if ok && time.Since(entry.storedAt) < c.ttl {
		return entry.info
	}

	info, err := c.fetch(ctx, group)
	if err == nil {
		c.store(group, info)
		return info
	}

	if IsForbiddenError(err) {
		c.store(group, nil)
		return nil
	}

	if IsRateLimitError(err) {
		log.Print(nil).WithError(err).Warn("Group metadata fetch rate limited, serving stale entry")
	} else {
		log.Print(nil).WithError(err).Warn("Group metadata fetch failed, serving stale entry")
	}
	if ok {
		return entry.info
	}
	return nil
}

// Live always issues a transport fetch, refreshing the cache on success and
// serving the last cached value on failure.
func (c *GroupCache) Live(ctx context.Context, group types.JID) *types.GroupInfo {
	if group.Server != types.GroupServer {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	info, err := c.fetch(ctx, group)
	if err == nil {
		c.store(group, info)
		return info
	}

	log.Print(nil).WithError(err).Warn("Live group metadata fetch failed, serving cached entry")
	if entry, ok := c.lookup(group); ok {
		return entry.info
	}
	return nil
}

// Invalidate drops one group's entry, used when a participant change event
// makes the snapshot certainly stale.
func (c *GroupCache) Invalidate(group types.JID) {
	c.mu.Lock()
	delete(c.entries, group)
	c.mu.Unlock()
}

// Sweep drops all expired entries. Called from a periodic routine.
func (c *GroupCache) Sweep() {
	now := time.Now()
	c.mu.Lock()
	for group, entry := range c.entries {
		if now.Sub(entry.storedAt) >= c.ttl {
			delete(c.entries, group)
		}
	}
	c.mu.Unlock()
}

// Len reports the number of cached entries, for the status API.
func (c *GroupCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
