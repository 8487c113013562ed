package main

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/haukened/rr-nbt/internal/nbt/common/clock"
	"github.com/haukened/rr-nbt/internal/nbt/common/log"
	"github.com/haukened/rr-nbt/internal/nbt/config"
	"github.com/haukened/rr-nbt/internal/nbt/domain"
	"github.com/haukened/rr-nbt/internal/nbt/gateways/nbstat"
	"github.com/haukened/rr-nbt/internal/nbt/gateways/wire"
	"github.com/haukened/rr-nbt/internal/nbt/repos/hostcache"
	"github.com/haukened/rr-nbt/internal/nbt/repos/hoststore"
	"github.com/haukened/rr-nbt/internal/nbt/repos/nameindex"
	"github.com/haukened/rr-nbt/internal/nbt/repos/seen"
	"github.com/haukened/rr-nbt/internal/nbt/repos/targets"
	"github.com/haukened/rr-nbt/internal/nbt/services/scanner"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "nbtscan"

	infoCommand  = "info"
	hostsCommand = "hosts"
)

var errNoTargets = errors.New("no targets: pass addresses as arguments or set NBT_TARGETS, NBT_TARGETS_FILE or NBT_BROADCAST")

// Application holds all the components of the scanner
type Application struct {
	config  *config.AppConfig
	scanner *scanner.Service
	store   scanner.HostStore
	targets []netip.Addr
	logger  log.Logger
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":   version,
		"env":       cfg.Env,
		"log_level": cfg.LogLevel,
		"port":      cfg.Port,
		"timeout":   cfg.Timeout.String(),
		"workers":   cfg.Workers,
		"scope":     cfg.Scope,
	}, "Starting "+appName)

	args := os.Args[1:]
	var command, node string
	switch {
	case len(args) == 2 && args[0] == infoCommand:
		command, node, args = infoCommand, args[1], nil
	case len(args) == 1 && args[0] == hostsCommand:
		command, args = hostsCommand, nil
	}

	app, err := buildApplication(cfg, args, command == "")
	if err != nil {
		log.Error(map[string]any{"error": err}, "Failed to build application")
		os.Exit(1)
	}
	defer app.Close()

	// Cancel the sweep on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case infoCommand:
		err = app.Info(ctx, node)
	case hostsCommand:
		err = app.Hosts()
	default:
		err = app.Run(ctx)
	}
	if err != nil {
		log.Error(map[string]any{"error": err}, "Scan failed")
		app.Close()
		os.Exit(1)
	}
}

// buildApplication constructs all components and wires them together.
// Targets are only required for a sweep.
func buildApplication(cfg *config.AppConfig, args []string, needTargets bool) (*Application, error) {
	clk := &clock.RealClock{}
	logger := log.GetLogger()

	var addrs []netip.Addr
	if needTargets {
		var err error
		addrs, err = collectTargets(cfg, args, logger)
		if err != nil {
			return nil, err
		}
		if len(addrs) == 0 && !cfg.BroadcastAddr().IsValid() {
			return nil, errNoTargets
		}
	}

	// Encoding skips empty scope labels, so malformed scopes stop here.
	if err := domain.ValidateScope(cfg.Scope); err != nil {
		return nil, fmt.Errorf("invalid NetBIOS scope: %w", err)
	}
	codec := wire.NewUDPCodec(logger, wire.Options{Scope: cfg.Scope, MaxNames: cfg.MaxNames})

	client, err := nbstat.NewClient(nbstat.Options{
		Bind:    cfg.Bind,
		Port:    cfg.Port,
		Timeout: cfg.Timeout,
		Codec:   codec,
		Clock:   clk,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create NBSTAT client: %w", err)
	}

	repos, err := buildRepositories(cfg, codec, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build repositories: %w", err)
	}

	svc, err := scanner.NewService(scanner.Options{
		Client:  client,
		Cache:   repos.cache,
		Seen:    repos.seen,
		Store:   repos.store,
		Index:   repos.index,
		Clock:   clk,
		Logger:  logger,
		Workers: cfg.Workers,
	})
	if err != nil {
		if repos.store != nil {
			_ = repos.store.Close()
		}
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	return &Application{
		config:  cfg,
		scanner: svc,
		store:   repos.store,
		targets: addrs,
		logger:  logger,
	}, nil
}

// repositories holds all repository implementations
type repositories struct {
	cache scanner.HostCache
	seen  scanner.SeenFilter
	store scanner.HostStore
	index scanner.NameIndex
}

// buildRepositories creates and configures all repository implementations
func buildRepositories(cfg *config.AppConfig, codec wire.NBTCodec, clk clock.Clock, logger log.Logger) (*repositories, error) {
	cache, err := hostcache.New(cfg.CacheSize, cfg.CacheTTL, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to create host cache: %w", err)
	}
	logger.Debug(map[string]any{
		"size": cfg.CacheSize,
		"ttl":  cfg.CacheTTL.String(),
	}, "Host cache configured")

	var store scanner.HostStore
	if cfg.DBPath != "" {
		store, err = hoststore.New(cfg.DBPath, codec)
		if err != nil {
			return nil, err
		}
		logger.Debug(map[string]any{"path": cfg.DBPath}, "Host store opened")
	}

	return &repositories{
		cache: cache,
		seen:  seen.New(cfg.BloomCapacity, cfg.BloomFPRate),
		store: store,
		index: nameindex.New(),
	}, nil
}

// collectTargets merges targets from arguments, NBT_TARGETS and the
// targets file, in that order, without duplicates.
func collectTargets(cfg *config.AppConfig, args []string, logger log.Logger) ([]netip.Addr, error) {
	exprs := append([]string{}, args...)
	exprs = append(exprs, cfg.Targets...)
	if cfg.TargetsFile != "" {
		fromFile, err := targets.LoadFile(cfg.TargetsFile, logger)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, fromFile...)
	}

	addrs, err := targets.Resolve(exprs)
	if err != nil {
		return nil, fmt.Errorf("invalid targets: %w", err)
	}
	return addrs, nil
}

// Run performs one sweep and logs every host plus a summary.
func (app *Application) Run(ctx context.Context) error {
	var (
		results []domain.ScanResult
		stats   scanner.ScanStats
	)

	if bcast := app.config.BroadcastAddr(); bcast.IsValid() {
		sweepCtx, cancel := context.WithTimeout(ctx, app.config.Timeout)
		defer cancel()

		var err error
		results, stats, err = app.scanner.Broadcast(sweepCtx, bcast)
		if err != nil {
			return err
		}
	} else {
		results, stats = app.scanner.Scan(ctx, app.targets)
	}

	for _, res := range results {
		logResult(app.logger, res)
	}

	fields := map[string]any{
		"targets":       stats.Targets,
		"responded":     stats.Responded,
		"truncated":     stats.Truncated,
		"cached":        stats.Cached,
		"failed":        stats.Failed,
		"duration":      stats.Duration.String(),
		"indexed_names": app.scanner.IndexedNames(),
	}
	if st, err := app.scanner.StoreStats(); err == nil && app.store != nil {
		fields["stored_hosts"] = st.Hosts
		fields["scans"] = st.Scans
	}
	app.logger.Info(fields, "Scan complete")

	return ctx.Err()
}

// Info looks up one node and logs its summary.
func (app *Application) Info(ctx context.Context, node string) error {
	info, err := app.scanner.NodeInfo(ctx, node)
	if err != nil {
		return err
	}
	app.logger.Info(map[string]any{
		"name":    info.Name,
		"domain":  info.Domain,
		"ip":      info.IP,
		"service": info.Service,
	}, "Node info")
	return nil
}

// Hosts logs the last stored reply of every persisted host.
func (app *Application) Hosts() error {
	hosts, err := app.scanner.StoredHosts()
	if err != nil {
		return err
	}
	for _, res := range hosts {
		logResult(app.logger, res)
	}
	st, err := app.scanner.StoreStats()
	if err != nil {
		return err
	}
	app.logger.Info(map[string]any{
		"stored_hosts": len(hosts),
		"scans":        st.Scans,
		"updated":      st.Updated,
	}, "Stored hosts")
	return nil
}

// Close releases the host store.
func (app *Application) Close() error {
	if app.store == nil {
		return nil
	}
	err := app.store.Close()
	app.store = nil
	return err
}

// logResult writes one structured line for a host. Hosts that never
// answered are logged at debug level only.
func logResult(logger log.Logger, res domain.ScanResult) {
	fields := map[string]any{"ip": res.Addr.String()}

	if res.Err != nil && !errors.Is(res.Err, domain.ErrTruncated) {
		fields["error"] = res.Err
		logger.Debug(fields, "No reply")
		return
	}

	host := res.Host
	fields["name"] = host.Hostname()
	fields["domain"] = host.Workgroup()
	fields["mac"] = host.Footer.MAC().String()
	fields["rtt"] = res.RTT.String()
	fields["names"] = len(host.Names)
	fields["cached"] = res.Cached

	names := make([]string, len(host.Names))
	for i, n := range host.Names {
		kind := "unique"
		if n.IsGroup() {
			kind = "group"
		}
		names[i] = fmt.Sprintf("%s %s %s-node %s %s", n.Name.String(), kind, n.NodeType(), nameState(n), n.Service())
	}
	fields["table"] = strings.Join(names, "; ")

	if res.Err != nil {
		fields["error"] = res.Err
		logger.Warn(fields, "Partial reply")
		return
	}
	logger.Info(fields, "Host")
}

// nameState lists the set state bits of a name entry, "-" when none are set.
func nameState(n domain.NameRecord) string {
	var state []string
	if n.IsActive() {
		state = append(state, "active")
	}
	if n.IsPermanent() {
		state = append(state, "permanent")
	}
	if n.IsConflict() {
		state = append(state, "conflict")
	}
	if n.IsDeregister() {
		state = append(state, "deregister")
	}
	if len(state) == 0 {
		return "-"
	}
	return strings.Join(state, ",")
}
