// Package wire encodes NetBIOS Name Service node status queries and decodes
// their responses, as specified in RFC 1001 and RFC 1002.
package wire

import (
	"fmt"

	"github.com/haukened/rr-nbt/internal/nbt/common/log"
	"github.com/haukened/rr-nbt/internal/nbt/domain"
)

// NBTCodec is what the gateways need from the wire layer.
type NBTCodec interface {
	EncodeStatusQuery(id uint16) []byte
	DecodeStatusResponse(data []byte) (domain.HostInfo, error)
}

// Options configures a udpCodec.
type Options struct {
	// Scope is appended to every encoded question name.
	Scope string
	// MaxNames caps the decoded name table. Zero means domain.DefaultMaxNames.
	MaxNames int
}

// udpCodec implements NBTCodec for Name Service datagrams.
type udpCodec struct {
	logger   log.Logger
	scope    string
	maxNames int
}

// NewUDPCodec returns a codec that logs through logger.
func NewUDPCodec(logger log.Logger, opts Options) *udpCodec {
	if opts.MaxNames <= 0 {
		opts.MaxNames = domain.DefaultMaxNames
	}
	return &udpCodec{
		logger:   logger.With(map[string]any{"component": "wire"}),
		scope:    opts.Scope,
		maxNames: opts.MaxNames,
	}
}

// EncodeStatusQuery builds the node status query for id using the codec scope.
func (c *udpCodec) EncodeStatusQuery(id uint16) []byte {
	pkt := EncodeStatusQuery(id, c.scope)
	c.logger.Debug(map[string]any{
		"id":    id,
		"scope": c.scope,
		"size":  len(pkt),
	}, "Encoded node status query")
	return pkt
}

// DecodeStatusResponse decodes data with the codec's name table capacity.
func (c *udpCodec) DecodeStatusResponse(data []byte) (domain.HostInfo, error) {
	decode := DecodeStatusResponse
	if c.scope != "" {
		decode = DecodeScopedStatusResponse
	}
	info, err := decode(data, c.maxNames)
	if err != nil {
		c.logger.Debug(map[string]any{
			"size":  len(data),
			"error": err,
			"raw":   fmt.Sprintf("%x", data),
		}, "Partial node status response")
		return info, err
	}
	c.logger.Debug(map[string]any{
		"id":        info.Header.TransactionID,
		"names":     len(info.Names),
		"declared":  info.Header.NumberOfNames,
		"truncated": info.NamesTruncated,
		"mac":       info.Footer.MAC().String(),
	}, "Decoded node status response")
	return info, nil
}

var _ NBTCodec = (*udpCodec)(nil)
