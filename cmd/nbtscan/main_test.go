package main

import (
	"context"
	"encoding/binary"
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-nbt/internal/nbt/common/log"
	"github.com/haukened/rr-nbt/internal/nbt/config"
	"github.com/haukened/rr-nbt/internal/nbt/domain"
	"github.com/haukened/rr-nbt/internal/nbt/gateways/transport"
	"github.com/haukened/rr-nbt/internal/nbt/services/scanner"
)

// captureLogger records messages and their fields.
type captureLogger struct {
	mu      sync.Mutex
	entries []entry
}

type entry struct {
	level  string
	msg    string
	fields map[string]any
}

func (l *captureLogger) add(level string, fields map[string]any, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) Info(f map[string]any, msg string)  { l.add("info", f, msg) }
func (l *captureLogger) Error(f map[string]any, msg string) { l.add("error", f, msg) }
func (l *captureLogger) Debug(f map[string]any, msg string) { l.add("debug", f, msg) }
func (l *captureLogger) Warn(f map[string]any, msg string)  { l.add("warn", f, msg) }
func (l *captureLogger) Panic(f map[string]any, msg string) { l.add("panic", f, msg) }
func (l *captureLogger) Fatal(f map[string]any, msg string) { l.add("fatal", f, msg) }
func (l *captureLogger) With(map[string]any) log.Logger     { return l }

func (l *captureLogger) find(msg string) []entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []entry
	for _, e := range l.entries {
		if e.msg == msg {
			out = append(out, e)
		}
	}
	return out
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := config.DEFAULT_APP_CONFIG
	cfg.Bind = "127.0.0.1:0"
	cfg.Timeout = 500 * time.Millisecond
	return &cfg
}

func useLogger(t *testing.T) *captureLogger {
	t.Helper()
	orig := log.GetLogger()
	l := &captureLogger{}
	log.SetLogger(l)
	t.Cleanup(func() { log.SetLogger(orig) })
	return l
}

// startResponder answers node status queries on loopback with a fixed
// workstation name table.
func startResponder(t *testing.T) netip.AddrPort {
	t.Helper()
	srv, err := transport.NewUDPTransport("127.0.0.1:0", log.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	go func() {
		buf := make([]byte, 1024)
		for {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, src, _, err := srv.Receive(ctx, buf)
			cancel()
			if err != nil {
				return
			}
			_, _ = srv.WriteTo(statusReply(buf[:n]), src)
		}
	}()

	ap, err := netip.ParseAddrPort(srv.LocalAddr().String())
	require.NoError(t, err)
	return ap
}

func statusReply(query []byte) []byte {
	names := []struct {
		name   string
		suffix byte
		flags  uint16
	}{
		{"LABPC", 0x00, 0x0400},
		{"LAB", 0x00, 0x8400},
		{"LABPC", 0x20, 0x0400},
	}
	pkt := append([]byte{}, query[0:2]...)
	pkt = append(pkt, 0x84, 0x00, 0, 0, 0, 1, 0, 0, 0, 0)
	pkt = append(pkt, query[domain.HeaderSize:domain.HeaderSize+domain.QuestionNameSize]...)
	pkt = append(pkt, 0x00, 0x21, 0x00, 0x01, 0, 0, 0, 0)
	pkt = binary.BigEndian.AppendUint16(pkt, uint16(1+len(names)*domain.NameRecordSize+domain.AdapterStatusSize))
	pkt = append(pkt, byte(len(names)))
	for _, n := range names {
		nb := domain.NewNetBIOSName(n.name, n.suffix)
		pkt = append(pkt, nb[:]...)
		pkt = binary.BigEndian.AppendUint16(pkt, n.flags)
	}
	footer := make([]byte, domain.AdapterStatusSize)
	copy(footer, []byte{0x02, 0x42, 0xac, 0x11, 0x00, 0x02})
	return append(pkt, footer...)
}

func TestCollectTargets(t *testing.T) {
	file := filepath.Join(t.TempDir(), "targets.txt")
	require.NoError(t, os.WriteFile(file, []byte("10.0.0.3\n10.0.0.9 # dup from env\n"), 0o644))

	cfg := testConfig(t)
	cfg.Targets = []string{"10.0.0.9", "10.0.0.1"}
	cfg.TargetsFile = file

	got, err := collectTargets(cfg, []string{"10.0.0.1-2"}, log.NewNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{
		netip.MustParseAddr("10.0.0.1"),
		netip.MustParseAddr("10.0.0.2"),
		netip.MustParseAddr("10.0.0.9"),
		netip.MustParseAddr("10.0.0.3"),
	}, got)
}

func TestCollectTargets_Errors(t *testing.T) {
	cfg := testConfig(t)
	_, err := collectTargets(cfg, []string{"printer"}, log.NewNoopLogger())
	assert.ErrorContains(t, err, "invalid targets")

	cfg.TargetsFile = filepath.Join(t.TempDir(), "missing.txt")
	_, err = collectTargets(cfg, nil, log.NewNoopLogger())
	assert.ErrorContains(t, err, "failed to open target file")
}

func TestBuildApplication_ConfigurationVariations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.AppConfig)
		args    []string
		targets bool
		wantErr error
		wantMsg string
	}{
		{name: "args", args: []string{"10.0.0.1"}, targets: true},
		{name: "broadcast only", mutate: func(c *config.AppConfig) { c.Broadcast = "10.0.0.255" }, targets: true},
		{name: "info needs no targets", targets: false},
		{name: "no targets", targets: true, wantErr: errNoTargets},
		{
			name:    "empty scope label",
			mutate:  func(c *config.AppConfig) { c.Scope = "corp..example" },
			args:    []string{"10.0.0.1"},
			targets: true,
			wantMsg: "invalid NetBIOS scope",
		},
		{name: "cache disabled", mutate: func(c *config.AppConfig) { c.CacheSize = 0 }, args: []string{"10.0.0.1"}, targets: true},
		{
			name:    "bad db path",
			mutate:  func(c *config.AppConfig) { c.DBPath = "/nonexistent/dir/hosts.db" },
			args:    []string{"10.0.0.1"},
			targets: true,
			wantMsg: "failed to build repositories",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useLogger(t)
			cfg := testConfig(t)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			app, err := buildApplication(cfg, tt.args, tt.targets)
			if tt.wantErr != nil || tt.wantMsg != "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				if tt.wantMsg != "" {
					assert.Contains(t, err.Error(), tt.wantMsg)
				}
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, app.scanner)
			assert.NoError(t, app.Close())
		})
	}
}

func TestApplication_Run(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	logger := useLogger(t)
	ap := startResponder(t)

	cfg := testConfig(t)
	cfg.Port = int(ap.Port())
	cfg.DBPath = filepath.Join(t.TempDir(), "hosts.db")

	app, err := buildApplication(cfg, []string{ap.Addr().String()}, true)
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Run(context.Background()))

	hosts := logger.find("Host")
	require.Len(t, hosts, 1)
	assert.Equal(t, "127.0.0.1", hosts[0].fields["ip"])
	assert.Equal(t, "LABPC", hosts[0].fields["name"])
	assert.Equal(t, "LAB", hosts[0].fields["domain"])
	assert.Equal(t, "02:42:ac:11:00:02", hosts[0].fields["mac"])
	assert.Equal(t, 3, hosts[0].fields["names"])
	assert.Contains(t, hosts[0].fields["table"], "LABPC<20> unique B-node active File Server Service")
	assert.Contains(t, hosts[0].fields["table"], "LAB<00> group B-node active Domain Name")

	summary := logger.find("Scan complete")
	require.Len(t, summary, 1)
	assert.Equal(t, 1, summary[0].fields["responded"])
	assert.Equal(t, uint64(1), summary[0].fields["stored_hosts"])
	assert.Equal(t, uint64(1), summary[0].fields["scans"])
	assert.Equal(t, 2, summary[0].fields["indexed_names"])

	// A second sweep is served from the cache.
	require.NoError(t, app.Run(context.Background()))
	summary = logger.find("Scan complete")
	require.Len(t, summary, 2)
	assert.Equal(t, 1, summary[1].fields["cached"])
}

func TestApplication_Hosts(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	logger := useLogger(t)
	ap := startResponder(t)

	cfg := testConfig(t)
	cfg.Port = int(ap.Port())

	app, err := buildApplication(cfg, nil, false)
	require.NoError(t, err)
	assert.ErrorIs(t, app.Hosts(), scanner.ErrNoStore)

	cfg.DBPath = filepath.Join(t.TempDir(), "hosts.db")
	app, err = buildApplication(cfg, []string{ap.Addr().String()}, true)
	require.NoError(t, err)
	defer app.Close()
	require.NoError(t, app.Run(context.Background()))

	require.NoError(t, app.Hosts())
	stored := logger.find("Stored hosts")
	require.Len(t, stored, 1)
	assert.Equal(t, 1, stored[0].fields["stored_hosts"])
	assert.Equal(t, uint64(1), stored[0].fields["scans"])
	assert.Len(t, logger.find("Host"), 2, "one line from the sweep, one from the store")
}

func TestNameState(t *testing.T) {
	tests := []struct {
		flags uint16
		want  string
	}{
		{flags: 0, want: "-"},
		{flags: domain.NameFlagActive, want: "active"},
		{flags: domain.NameFlagActive | domain.NameFlagPermanent, want: "active,permanent"},
		{flags: domain.NameFlagConflict | domain.NameFlagDeregister, want: "conflict,deregister"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, nameState(domain.NameRecord{Flags: tt.flags}))
		})
	}
}

func TestApplication_Info(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	logger := useLogger(t)
	ap := startResponder(t)

	cfg := testConfig(t)
	cfg.Port = int(ap.Port())

	app, err := buildApplication(cfg, nil, false)
	require.NoError(t, err)

	require.NoError(t, app.Info(context.Background(), ap.Addr().String()))
	info := logger.find("Node info")
	require.Len(t, info, 1)
	assert.Equal(t, "LABPC", info[0].fields["name"])
	assert.Equal(t, "LAB", info[0].fields["domain"])
	assert.Equal(t, "Workstation Service, Domain Name, File Server Service", info[0].fields["service"])
}

func TestLogResult(t *testing.T) {
	tests := []struct {
		name  string
		res   domain.ScanResult
		level string
		msg   string
	}{
		{
			name:  "no reply",
			res:   domain.ScanResult{Addr: netip.MustParseAddr("10.0.0.1"), Err: errors.New("timeout")},
			level: "debug",
			msg:   "No reply",
		},
		{
			name: "partial",
			res: domain.ScanResult{
				Addr: netip.MustParseAddr("10.0.0.2"),
				Err:  &domain.TruncatedError{Field: "unit id", Offset: 75, Need: 6, Have: 2},
			},
			level: "warn",
			msg:   "Partial reply",
		},
		{
			name:  "host",
			res:   domain.ScanResult{Addr: netip.MustParseAddr("10.0.0.3")},
			level: "info",
			msg:   "Host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &captureLogger{}
			logResult(l, tt.res)
			require.Len(t, l.entries, 1)
			assert.Equal(t, tt.level, l.entries[0].level)
			assert.Equal(t, tt.msg, l.entries[0].msg)
			assert.Equal(t, tt.res.Addr.String(), l.entries[0].fields["ip"])
		})
	}
}
