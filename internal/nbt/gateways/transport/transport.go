// Package transport owns the UDP sockets used to talk to NetBIOS name
// services and the sender that stamps and writes node status queries.
package transport

import (
	"context"
	"net"
)

// DefaultPort is the NetBIOS Name Service port.
const DefaultPort = 137

// PacketWriter is the part of a datagram socket the sender needs.
// net.PacketConn and *UDPTransport both satisfy it.
type PacketWriter interface {
	WriteTo(p []byte, addr net.Addr) (int, error)
}

// Conn is a datagram socket that can send queries and wait for replies.
type Conn interface {
	PacketWriter

	// Receive reads one datagram into buf. It returns the byte count, the
	// sender address and the receiving interface index (0 when unknown).
	Receive(ctx context.Context, buf []byte) (int, net.Addr, int, error)

	LocalAddr() net.Addr
	Close() error
}
