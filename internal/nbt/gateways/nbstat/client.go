// Package nbstat queries NetBIOS name services for their node status table.
package nbstat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/haukened/rr-nbt/internal/nbt/common/clock"
	"github.com/haukened/rr-nbt/internal/nbt/common/log"
	"github.com/haukened/rr-nbt/internal/nbt/domain"
	"github.com/haukened/rr-nbt/internal/nbt/gateways/transport"
	"github.com/haukened/rr-nbt/internal/nbt/gateways/wire"
)

// Error message constants for consistent error handling
const (
	errCodecRequired = "NBT codec is required"
	errInvalidAddr   = "invalid target address"
	errListenFailed  = "failed to open socket: %w"
	errReceiveFailed = "receive from %s failed: %w"
	errQueryTimeout  = "no reply from %s within %v"
)

// MaxDatagram is large enough for a reply carrying 255 names and a long scope.
const MaxDatagram = 8192

// ListenFunc opens the local socket a query is sent from.
type ListenFunc func(bind string, logger log.Logger) (transport.Conn, error)

// Options configures a Client. Codec is required; everything else has a default.
type Options struct {
	Bind    string        // local address, default "0.0.0.0:0"
	Port    int           // remote port, default 137
	Timeout time.Duration // per-query wait when ctx has no deadline, default 2s

	// injected for testing
	Codec  wire.NBTCodec
	Clock  clock.Clock
	Logger log.Logger
	Listen ListenFunc
}

// Client sends node status queries and decodes the replies. Each query uses
// its own socket so concurrent calls never share state.
type Client struct {
	bind    string
	port    int
	timeout time.Duration
	codec   wire.NBTCodec
	clock   clock.Clock
	logger  log.Logger
	listen  ListenFunc
	sender  *transport.Sender
	rttBase time.Time
}

// NewClient builds a Client. The round trip base is fixed at construction.
func NewClient(opts Options) (*Client, error) {
	if opts.Codec == nil {
		return nil, errors.New(errCodecRequired)
	}
	if opts.Bind == "" {
		opts.Bind = "0.0.0.0:0"
	}
	if opts.Port <= 0 {
		opts.Port = transport.DefaultPort
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	logger := opts.Logger.With(map[string]any{"component": "nbstat"})
	if opts.Listen == nil {
		opts.Listen = func(bind string, logger log.Logger) (transport.Conn, error) {
			return transport.NewUDPTransport(bind, logger)
		}
	}

	return &Client{
		bind:    opts.Bind,
		port:    opts.Port,
		timeout: opts.Timeout,
		codec:   opts.Codec,
		clock:   opts.Clock,
		logger:  logger,
		listen:  opts.Listen,
		sender:  transport.NewSender(opts.Codec, opts.Clock, logger),
		rttBase: opts.Clock.Now(),
	}, nil
}

// ensureContextDeadline adds the client's timeout when ctx has no deadline.
func (c *Client) ensureContextDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, nil
}

// Query sends one node status query to addr and waits for one reply.
// A truncated reply is still returned: the result carries the partially
// decoded host and the error wraps domain.ErrTruncated.
func (c *Client) Query(ctx context.Context, addr netip.Addr) (domain.ScanResult, error) {
	result := domain.ScanResult{Addr: addr}
	if !addr.IsValid() {
		result.Err = errors.New(errInvalidAddr)
		return result, result.Err
	}

	ctx, cancel := c.ensureContextDeadline(ctx)
	if cancel != nil {
		defer cancel()
	}
	wait := c.waitFor(ctx)

	conn, err := c.listen(c.bind, c.logger)
	if err != nil {
		result.Err = fmt.Errorf(errListenFailed, err)
		return result, result.Err
	}
	defer conn.Close()

	dst := c.destination(addr)
	if _, err := c.sender.SendQuery(ctx, conn, dst, c.rttBase); err != nil {
		result.Err = err
		return result, err
	}

	buf := make([]byte, MaxDatagram)
	n, src, _, err := conn.Receive(ctx, buf)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf(errQueryTimeout+": %w", dst, wait, err)
		} else {
			err = fmt.Errorf(errReceiveFailed, dst, err)
		}
		result.Err = err
		return result, err
	}

	result = c.decode(buf[:n], src)
	if responder := result.Addr; responder != addr.Unmap() {
		c.logger.Debug(map[string]any{"target": addr.String(), "responder": responder.String()}, "Reply came from a different address")
	}
	result.Addr = addr
	return result, result.Err
}

// Sweep sends one query to addr, typically a broadcast address, and hands
// every reply received before ctx is done to handle. It returns the number
// of replies seen.
func (c *Client) Sweep(ctx context.Context, addr netip.Addr, handle func(domain.ScanResult)) (int, error) {
	if !addr.IsValid() {
		return 0, errors.New(errInvalidAddr)
	}

	ctx, cancel := c.ensureContextDeadline(ctx)
	if cancel != nil {
		defer cancel()
	}

	conn, err := c.listen(c.bind, c.logger)
	if err != nil {
		return 0, fmt.Errorf(errListenFailed, err)
	}
	defer conn.Close()

	dst := c.destination(addr)
	if _, err := c.sender.SendQuery(ctx, conn, dst, c.rttBase); err != nil {
		return 0, err
	}

	buf := make([]byte, MaxDatagram)
	replies := 0
	for {
		n, src, _, err := conn.Receive(ctx, buf)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return replies, nil
			}
			return replies, fmt.Errorf(errReceiveFailed, dst, err)
		}
		replies++
		handle(c.decode(buf[:n], src))
	}
}

// waitFor reports how long ctx allows for a reply, which is the caller's
// deadline when it is shorter than the client timeout.
func (c *Client) waitFor(ctx context.Context) time.Duration {
	if d, ok := ctx.Deadline(); ok {
		return time.Until(d).Round(time.Millisecond)
	}
	return c.timeout
}

func (c *Client) destination(addr netip.Addr) *net.UDPAddr {
	return net.UDPAddrFromAddrPort(netip.AddrPortFrom(addr.Unmap(), uint16(c.port)))
}

// decode turns one datagram into a ScanResult stamped with its round trip.
func (c *Client) decode(data []byte, src net.Addr) domain.ScanResult {
	now := c.clock.Now()
	host, err := c.codec.DecodeStatusResponse(data)

	result := domain.ScanResult{
		Addr:       addrOf(src),
		Host:       host,
		ReceivedAt: now,
		Err:        err,
		Raw:        append([]byte(nil), data...),
	}
	// The header fields are only meaningful once the header decoded.
	if len(data) >= domain.HeaderSize {
		result.RTT = domain.RoundTrip(host.Header.TransactionID, c.rttBase, now)
		if h := host.Header; !h.IsResponse() || h.RCode() != 0 {
			c.logger.Warn(map[string]any{
				"responder": result.Addr.String(),
				"response":  h.IsResponse(),
				"opcode":    h.Opcode(),
				"rcode":     h.RCode(),
			}, "Unexpected node status reply header")
		}
	}
	return result
}

func addrOf(a net.Addr) netip.Addr {
	if u, ok := a.(*net.UDPAddr); ok {
		return u.AddrPort().Addr().Unmap()
	}
	if a == nil {
		return netip.Addr{}
	}
	ap, err := netip.ParseAddrPort(a.String())
	if err != nil {
		return netip.Addr{}
	}
	return ap.Addr().Unmap()
}
