package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/haukened/rr-nbt/internal/nbt/common/log"
)

// UDPTransport is a bound UDP socket. IPv4 sockets are wrapped in an
// ipv4.PacketConn so replies carry the index of the interface they arrived on.
type UDPTransport struct {
	conn   *net.UDPConn
	v4     *ipv4.PacketConn
	logger log.Logger

	mu     sync.Mutex
	closed bool
}

// NewUDPTransport binds a UDP socket on addr ("host:port"; port 0 picks an
// ephemeral port). Go enables SO_BROADCAST on UDP sockets, so broadcast
// destinations work without extra options.
func NewUDPTransport(addr string, logger log.Logger) (*UDPTransport, error) {
	network := "udp4"
	if host, _, err := net.SplitHostPort(addr); err == nil {
		if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
			network = "udp6"
		}
	}

	udpAddr, err := net.ResolveUDPAddr(network, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address %s: %w", addr, err)
	}

	conn, err := net.ListenUDP(network, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind UDP socket on %s: %w", addr, err)
	}

	t := &UDPTransport{conn: conn, logger: logger}
	if network == "udp4" {
		t.v4 = ipv4.NewPacketConn(conn)
		// Control messages are best effort; without them the interface index is 0.
		if err := t.v4.SetControlMessage(ipv4.FlagInterface, true); err != nil {
			logger.Debug(map[string]any{"error": err}, "Interface control messages unavailable")
		}
	}

	logger.Debug(map[string]any{
		"transport": network,
		"address":   conn.LocalAddr().String(),
	}, "NBT socket bound")

	return t, nil
}

// WriteTo sends one datagram.
func (t *UDPTransport) WriteTo(p []byte, addr net.Addr) (int, error) {
	return t.conn.WriteTo(p, addr)
}

// Receive waits for one datagram until ctx is done.
func (t *UDPTransport) Receive(ctx context.Context, buf []byte) (int, net.Addr, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, 0, err
	}

	deadline, _ := ctx.Deadline()
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return 0, nil, 0, fmt.Errorf("failed to set read deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	var (
		n       int
		src     net.Addr
		ifIndex int
		err     error
	)
	if t.v4 != nil {
		var cm *ipv4.ControlMessage
		n, cm, src, err = t.v4.ReadFrom(buf)
		if cm != nil {
			ifIndex = cm.IfIndex
		}
	} else {
		n, src, err = t.conn.ReadFrom(buf)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, 0, ctxErr
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, nil, 0, context.DeadlineExceeded
		}
		return 0, nil, 0, fmt.Errorf("read failed: %w", err)
	}
	return n, src, ifIndex, nil
}

// LocalAddr returns the bound address.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Close releases the socket. It is safe to call more than once.
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if err := t.conn.Close(); err != nil {
		t.logger.Warn(map[string]any{"error": err}, "Error closing UDP connection")
		return err
	}
	return nil
}

var _ Conn = (*UDPTransport)(nil)
