// Package hostcache keeps recent node status results in a TTL-aware LRU.
package hostcache

import (
	"net/netip"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/rr-nbt/internal/nbt/common/clock"
	"github.com/haukened/rr-nbt/internal/nbt/domain"
	"github.com/haukened/rr-nbt/internal/nbt/services/scanner"
)

type entry struct {
	result  domain.ScanResult
	expires time.Time
}

// hostCache is an LRU of scan results keyed by target address. Entries
// older than the TTL are dropped on lookup.
type hostCache struct {
	lru       *lru.Cache[netip.Addr, entry]
	size      int
	ttl       time.Duration
	clock     clock.Clock
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache always misses. It is used when size or ttl is <= 0.
type disabledCache struct{}

// New returns a HostCache holding up to size results for ttl each.
func New(size int, ttl time.Duration, clk clock.Clock) (scanner.HostCache, error) {
	if size <= 0 || ttl <= 0 {
		return &disabledCache{}, nil
	}

	hc := &hostCache{size: size, ttl: ttl, clock: clk}
	cache, err := lru.NewWithEvict(size, func(_ netip.Addr, _ entry) {
		atomic.AddUint64(&hc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	hc.lru = cache
	return hc, nil
}

// Get returns the cached result for addr with Cached set. Expired entries
// are removed and count as a miss.
func (c *hostCache) Get(addr netip.Addr) (domain.ScanResult, bool) {
	if e, ok := c.lru.Get(addr); ok {
		if c.clock.Now().Before(e.expires) {
			atomic.AddUint64(&c.hits, 1)
			res := e.result
			res.Cached = true
			return res, true
		}
		c.lru.Remove(addr)
	}
	atomic.AddUint64(&c.misses, 1)
	return domain.ScanResult{}, false
}

// Put stores res under its address. Failed results are not cached.
func (c *hostCache) Put(res domain.ScanResult) {
	if !res.Addr.IsValid() || res.Err != nil {
		return
	}
	c.lru.Add(res.Addr, entry{result: res, expires: c.clock.Now().Add(c.ttl)})
}

// Stats returns cumulative counters.
func (c *hostCache) Stats() scanner.CacheStats {
	return scanner.CacheStats{
		Capacity:  c.size,
		Size:      c.lru.Len(),
		Hits:      atomic.LoadUint64(&c.hits),
		Misses:    atomic.LoadUint64(&c.misses),
		Evictions: atomic.LoadUint64(&c.evictions),
	}
}

// disabledCache implementation

func (d *disabledCache) Get(netip.Addr) (domain.ScanResult, bool) { return domain.ScanResult{}, false }

func (d *disabledCache) Put(domain.ScanResult) {}

func (d *disabledCache) Stats() scanner.CacheStats { return scanner.CacheStats{} }

var _ scanner.HostCache = (*hostCache)(nil)
var _ scanner.HostCache = (*disabledCache)(nil)
