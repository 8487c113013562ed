// Package scanner orchestrates node status sweeps: it fans queries out over
// a bounded worker pool, consults the cache, and records every reply in the
// store and the name index.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/haukened/rr-nbt/internal/nbt/common/clock"
	"github.com/haukened/rr-nbt/internal/nbt/common/log"
	"github.com/haukened/rr-nbt/internal/nbt/domain"
)

// DefaultWorkers bounds concurrent queries when Options.Workers is unset.
const DefaultWorkers = 32

var (
	// ErrClientRequired is returned by NewService without an NBSTATClient.
	ErrClientRequired = errors.New("NBSTAT client is required")
	// ErrNodeNotFound is returned when a node name resolves to no address.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNoStore is returned by StoredHosts when persistence is off.
	ErrNoStore = errors.New("host store is not configured")
)

// ScanStats summarizes one sweep.
type ScanStats struct {
	Targets   int
	Responded int
	Cached    int
	Truncated int
	Failed    int
	Duration  time.Duration
}

// Options wires a Service. Only Client is required; a nil Cache, Seen,
// Store or Index simply disables that feature.
type Options struct {
	Client  NBSTATClient
	Cache   HostCache
	Seen    SeenFilter
	Store   HostStore
	Index   NameIndex
	Lookup  LookupFunc
	Clock   clock.Clock
	Logger  log.Logger
	Workers int
}

// Service runs sweeps and single-host lookups.
type Service struct {
	client  NBSTATClient
	cache   HostCache
	seen    SeenFilter
	store   HostStore
	index   NameIndex
	lookup  LookupFunc
	clock   clock.Clock
	logger  log.Logger
	workers int
}

// NewService builds a Service from opts.
func NewService(opts Options) (*Service, error) {
	if opts.Client == nil {
		return nil, ErrClientRequired
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Lookup == nil {
		opts.Lookup = func(ctx context.Context, host string) ([]netip.Addr, error) {
			return net.DefaultResolver.LookupNetIP(ctx, "ip4", host)
		}
	}
	return &Service{
		client:  opts.Client,
		cache:   opts.Cache,
		seen:    opts.Seen,
		store:   opts.Store,
		index:   opts.Index,
		lookup:  opts.Lookup,
		clock:   opts.Clock,
		logger:  opts.Logger.With(map[string]any{"component": "scanner"}),
		workers: opts.Workers,
	}, nil
}

// Scan queries every target and returns one result per target, in target
// order. A host that fails only affects its own result.
func (s *Service) Scan(ctx context.Context, targets []netip.Addr) ([]domain.ScanResult, ScanStats) {
	start := s.clock.Now()
	results := make([]domain.ScanResult, len(targets))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(s.workers, len(targets)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.scanOne(ctx, targets[i])
			}
		}()
	}

	for i := range targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	stats := ScanStats{Targets: len(targets)}
	for _, r := range results {
		stats.add(r)
	}
	stats.Duration = clock.Since(s.clock, start)
	s.finish(stats)
	return results, stats
}

// Broadcast queries a broadcast address and returns each distinct responder
// once, in arrival order. It listens until ctx is done.
func (s *Service) Broadcast(ctx context.Context, addr netip.Addr) ([]domain.ScanResult, ScanStats, error) {
	start := s.clock.Now()
	if s.seen != nil {
		s.seen.Reset()
	}

	var results []domain.ScanResult
	_, err := s.client.Sweep(ctx, addr, func(res domain.ScanResult) {
		if s.seen != nil && s.seen.Seen(res.Addr) {
			s.logger.Debug(map[string]any{"responder": res.Addr.String()}, "Duplicate reply ignored")
			return
		}
		s.record(res)
		results = append(results, res)
	})

	stats := ScanStats{Targets: 1}
	for _, r := range results {
		stats.add(r)
	}
	stats.Duration = clock.Since(s.clock, start)
	if err != nil {
		s.logger.Error(map[string]any{"broadcast": addr.String(), "error": err}, "Broadcast sweep failed")
		return results, stats, err
	}
	s.finish(stats)
	return results, stats, nil
}

func (s *Service) scanOne(ctx context.Context, addr netip.Addr) domain.ScanResult {
	if err := ctx.Err(); err != nil {
		return domain.ScanResult{Addr: addr, Err: err}
	}
	if s.cache != nil {
		if res, ok := s.cache.Get(addr); ok {
			return res
		}
	}

	res, err := s.client.Query(ctx, addr)
	switch {
	case err == nil:
		s.record(res)
	case errors.Is(err, domain.ErrTruncated):
		s.logger.Warn(map[string]any{"target": addr.String(), "error": err}, "Truncated node status reply")
		s.record(res)
	default:
		s.logger.Debug(map[string]any{"target": addr.String(), "error": err}, "Node status query failed")
		// A host that stopped answering no longer owns its names. A cancelled
		// sweep says nothing about the host.
		if s.index != nil && ctx.Err() == nil {
			s.index.Remove(addr)
		}
	}
	return res
}

// record caches, persists and indexes a reply. Storage failures are logged
// and do not affect the result.
func (s *Service) record(res domain.ScanResult) {
	if s.cache != nil {
		s.cache.Put(res)
	}
	if s.index != nil {
		s.index.Add(res.Addr, res.Host)
	}
	if s.store != nil {
		if err := s.store.Put(res); err != nil {
			s.logger.Error(map[string]any{"target": res.Addr.String(), "error": err}, "Failed to persist reply")
		}
	}
}

func (s *Service) finish(stats ScanStats) {
	if s.store != nil {
		if err := s.store.MarkScan(s.clock.Now()); err != nil {
			s.logger.Error(map[string]any{"error": err}, "Failed to record scan")
		}
	}
	s.logger.Debug(map[string]any{
		"targets":   stats.Targets,
		"responded": stats.Responded,
		"failed":    stats.Failed,
		"duration":  stats.Duration.String(),
	}, "Sweep finished")
}

func (st *ScanStats) add(r domain.ScanResult) {
	switch {
	case r.Err == nil:
		st.Responded++
	case errors.Is(r.Err, domain.ErrTruncated):
		st.Responded++
		st.Truncated++
	default:
		st.Failed++
	}
	if r.Cached {
		st.Cached++
	}
}

// NodeInfo resolves node to an address and summarizes its name table. node
// may be an IP address, a NetBIOS name seen in an earlier scan, or a DNS
// host name. When the live query fails, the last stored reply is used.
func (s *Service) NodeInfo(ctx context.Context, node string) (domain.NodeInfo, error) {
	addr, err := s.resolve(ctx, node)
	if err != nil {
		return domain.NodeInfo{}, err
	}

	res := s.scanOne(ctx, addr)
	if res.Err != nil && !errors.Is(res.Err, domain.ErrTruncated) {
		stored, ok := s.stored(addr)
		if !ok {
			return domain.NodeInfo{IP: addr.String()}, fmt.Errorf("node %s: %w", node, res.Err)
		}
		s.logger.Warn(map[string]any{"node": node, "error": res.Err}, "Using stored reply")
		res = stored
	}
	return domain.NewNodeInfo(res.Host, addr), nil
}

func (s *Service) resolve(ctx context.Context, node string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(node); err == nil {
		return addr.Unmap(), nil
	}
	if s.index != nil {
		if addrs := s.index.Lookup(node); len(addrs) > 0 {
			return addrs[0], nil
		}
	}
	addrs, err := s.lookup(ctx, node)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %s: %w", ErrNodeNotFound, node, err)
	}
	if len(addrs) == 0 {
		return netip.Addr{}, fmt.Errorf("%w: %s", ErrNodeNotFound, node)
	}
	return addrs[0].Unmap(), nil
}

func (s *Service) stored(addr netip.Addr) (domain.ScanResult, bool) {
	if s.store == nil {
		return domain.ScanResult{}, false
	}
	res, ok, err := s.store.Get(addr)
	if err != nil {
		s.logger.Error(map[string]any{"target": addr.String(), "error": err}, "Failed to read stored reply")
		return domain.ScanResult{}, false
	}
	return res, ok
}

// StoredHosts returns the last stored reply of every persisted host, in
// address order.
func (s *Service) StoredHosts() ([]domain.ScanResult, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	addrs, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list stored hosts: %w", err)
	}
	out := make([]domain.ScanResult, 0, len(addrs))
	for _, addr := range addrs {
		res, ok, err := s.store.Get(addr)
		if err != nil {
			return out, fmt.Errorf("failed to read stored host %s: %w", addr, err)
		}
		if ok {
			out = append(out, res)
		}
	}
	return out, nil
}

// IndexedNames reports how many distinct NetBIOS names the index holds.
func (s *Service) IndexedNames() int {
	if s.index == nil {
		return 0
	}
	return s.index.Len()
}

// CacheStats reports the host cache counters, zero when caching is off.
func (s *Service) CacheStats() CacheStats {
	if s.cache == nil {
		return CacheStats{}
	}
	return s.cache.Stats()
}

// StoreStats reports the host store counters, zero when persistence is off.
func (s *Service) StoreStats() (StoreStats, error) {
	if s.store == nil {
		return StoreStats{}, nil
	}
	return s.store.Stats()
}
