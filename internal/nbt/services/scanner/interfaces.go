package scanner

import (
	"context"
	"net/netip"
	"time"

	"github.com/haukened/rr-nbt/internal/nbt/domain"
)

// NBSTATClient sends node status queries.
type NBSTATClient interface {
	// Query asks one host for its name table.
	Query(ctx context.Context, addr netip.Addr) (domain.ScanResult, error)
	// Sweep queries a broadcast address and reports every reply until ctx is done.
	Sweep(ctx context.Context, addr netip.Addr, handle func(domain.ScanResult)) (int, error)
}

// CacheStats reports lightweight cache metrics.
type CacheStats struct {
	Capacity  int
	Size      int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HostCache keeps recent scan results so repeated sweeps skip fresh hosts.
type HostCache interface {
	Get(addr netip.Addr) (domain.ScanResult, bool)
	Put(res domain.ScanResult)
	Stats() CacheStats
}

// SeenFilter remembers which responders already answered during a sweep.
// Seen may report false positives but never false negatives.
type SeenFilter interface {
	Seen(addr netip.Addr) bool
	Reset()
}

// StoreStats captures counts and metadata for the persistent host store.
type StoreStats struct {
	Hosts   uint64
	Scans   uint64
	Updated time.Time
}

// HostStore persists the last reply received from each host.
type HostStore interface {
	Put(res domain.ScanResult) error
	Get(addr netip.Addr) (domain.ScanResult, bool, error)
	List() ([]netip.Addr, error)
	MarkScan(at time.Time) error
	Stats() (StoreStats, error)
	Close() error
}

// NameIndex maps NetBIOS names to the addresses that registered them.
// Remove drops an address that stopped answering.
type NameIndex interface {
	Add(addr netip.Addr, host domain.HostInfo)
	Remove(addr netip.Addr)
	Lookup(name string) []netip.Addr
	Len() int
}

// LookupFunc resolves a DNS host name to addresses.
type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)
