package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/haukened/rr-nbt/internal/nbt/common/clock"
	"github.com/haukened/rr-nbt/internal/nbt/common/log"
	"github.com/haukened/rr-nbt/internal/nbt/domain"
	"github.com/haukened/rr-nbt/internal/nbt/gateways/wire"
)

// Sender writes node status queries. The transaction id is the number of
// milliseconds since the caller's rttBase, so a reply's echoed id gives the
// round trip time without any per-query state.
type Sender struct {
	codec  wire.NBTCodec
	clock  clock.Clock
	logger log.Logger
}

// NewSender returns a Sender that encodes with codec and stamps ids from clk.
func NewSender(codec wire.NBTCodec, clk clock.Clock, logger log.Logger) *Sender {
	return &Sender{codec: codec, clock: clk, logger: logger}
}

// SendQuery writes exactly one query to dst and returns the transaction id
// it carried. Failures come back as *domain.SendError and are not retried.
func (s *Sender) SendQuery(ctx context.Context, conn PacketWriter, dst net.Addr, rttBase time.Time) (uint16, error) {
	dest := dst.String()
	if err := ctx.Err(); err != nil {
		return 0, &domain.SendError{Dest: dest, Err: err}
	}

	id := domain.TransactionID(rttBase, s.clock.Now())
	packet := s.codec.EncodeStatusQuery(id)

	n, err := conn.WriteTo(packet, dst)
	if err != nil {
		s.logger.Debug(map[string]any{"dest": dest, "error": err}, "Query send failed")
		return id, &domain.SendError{Dest: dest, Err: err}
	}
	if n != len(packet) {
		err = fmt.Errorf("short write: %d of %d bytes", n, len(packet))
		return id, &domain.SendError{Dest: dest, Err: err}
	}

	s.logger.Debug(map[string]any{"dest": dest, "id": id, "bytes": n}, "Query sent")
	return id, nil
}
