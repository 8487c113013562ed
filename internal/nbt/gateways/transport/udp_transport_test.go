package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-nbt/internal/nbt/common/log"
)

func TestNewUDPTransport_InvalidAddress(t *testing.T) {
	_, err := NewUDPTransport("not-an-address", log.NewNoopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve UDP address")
}

func TestUDPTransport_RoundTrip(t *testing.T) {
	a, err := NewUDPTransport("127.0.0.1:0", log.NewNoopLogger())
	require.NoError(t, err)
	defer a.Close()

	b, err := NewUDPTransport("127.0.0.1:0", log.NewNoopLogger())
	require.NoError(t, err)
	defer b.Close()

	n, err := a.WriteTo([]byte("ping"), b.LocalAddr())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	buf := make([]byte, 64)
	n, src, _, err := b.Receive(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
	assert.Equal(t, a.LocalAddr().String(), src.String())
}

func TestUDPTransport_ReceiveDeadline(t *testing.T) {
	tr, err := NewUDPTransport("127.0.0.1:0", log.NewNoopLogger())
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, _, err = tr.Receive(ctx, make([]byte, 16))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestUDPTransport_ReceiveCancel(t *testing.T) {
	tr, err := NewUDPTransport("127.0.0.1:0", log.NewNoopLogger())
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, _, _, err = tr.Receive(ctx, make([]byte, 16))
	assert.ErrorIs(t, err, context.Canceled)

	// A later call with a fresh context still works.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	go func() {
		c, _ := net.Dial("udp4", tr.LocalAddr().String())
		if c != nil {
			_, _ = c.Write([]byte("x"))
			_ = c.Close()
		}
	}()
	n, _, _, err := tr.Receive(ctx2, make([]byte, 16))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUDPTransport_ReceiveAlreadyDone(t *testing.T) {
	tr, err := NewUDPTransport("127.0.0.1:0", log.NewNoopLogger())
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, _, err = tr.Receive(ctx, make([]byte, 16))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUDPTransport_CloseTwice(t *testing.T) {
	tr, err := NewUDPTransport("127.0.0.1:0", log.NewNoopLogger())
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	assert.NoError(t, tr.Close())
}
