package wire

import (
	"encoding/binary"
	"strings"

	"github.com/haukened/rr-nbt/internal/nbt/domain"
)

// DecodeStatusResponse decodes a node status response.
//
// Fields are read in wire order and each read is checked against the bytes
// left in data. When a field does not fit, decoding stops: the returned
// HostInfo keeps every field decoded so far and the error is a
// *domain.TruncatedError. At most maxNames name records are kept; a larger
// declared count sets NamesTruncated but is not an error. maxNames <= 0 uses
// domain.DefaultMaxNames.
//
// The echoed question name is copied as a fixed 34-byte block and never
// scope-decoded; use DecodeScopedStatusResponse when queries carry a scope.
func DecodeStatusResponse(data []byte, maxNames int) (domain.HostInfo, error) {
	return decodeStatus(data, maxNames, false)
}

// DecodeScopedStatusResponse is DecodeStatusResponse for replies to scoped
// queries: labels that follow the 34-byte question name are consumed into
// Header.QuestionScope before the fixed fields are read.
func DecodeScopedStatusResponse(data []byte, maxNames int) (domain.HostInfo, error) {
	return decodeStatus(data, maxNames, true)
}

func decodeStatus(data []byte, maxNames int, scoped bool) (domain.HostInfo, error) {
	if maxNames <= 0 {
		maxNames = domain.DefaultMaxNames
	}

	var info domain.HostInfo
	c := newCursor(data)

	decodeHeader(c, &info.Header, scoped)
	if c.err != nil {
		return info, c.err
	}

	decodeNameTable(c, &info, maxNames)
	if c.err != nil {
		return info, c.err
	}

	decodeAdapterStatus(c, &info.Footer)
	if c.err != nil {
		return info, c.err
	}

	info.Complete = true
	return info, nil
}

func decodeHeader(c *cursor, h *domain.ResponseHeader, scoped bool) {
	// The six fixed header words are taken as one unit so a datagram shorter
	// than a header leaves the whole record at its zero value.
	if b := c.take("header", domain.HeaderSize); b != nil {
		h.TransactionID = binary.BigEndian.Uint16(b[0:2])
		h.Flags = binary.BigEndian.Uint16(b[2:4])
		h.QuestionCount = binary.BigEndian.Uint16(b[4:6])
		h.AnswerCount = binary.BigEndian.Uint16(b[6:8])
		h.NameServiceCount = binary.BigEndian.Uint16(b[8:10])
		h.AdditionalRecordCount = binary.BigEndian.Uint16(b[10:12])
	}

	c.block("question name", h.QuestionName[:])
	if c.err == nil {
		if scoped {
			h.QuestionScope = decodeQuestionScope(c, h.QuestionName[domain.QuestionNameSize-1])
		}
		plain := h.QuestionName
		plain[domain.QuestionNameSize-1] = 0
		if name, _, _, err := DecodeName(plain[:]); err == nil {
			h.QueriedName = name
		}
	}

	var qtype uint16
	c.u16("question type", &qtype)
	h.QuestionType = domain.QuestionType(qtype)
	c.u16("question class", &h.QuestionClass)
	c.u32("ttl", &h.TTL)
	c.u16("rdata length", &h.RDataLength)
	c.u8("number of names", &h.NumberOfNames)
}

// decodeQuestionScope consumes scope labels when the echoed name of a scoped
// query did not end at the usual terminator. first is the byte in the
// terminator position.
func decodeQuestionScope(c *cursor, first byte) string {
	var labels []string
	for l := first; l != 0 && c.err == nil; {
		label := c.take("question scope", int(l))
		if label == nil {
			break
		}
		labels = append(labels, string(label))
		c.u8("question scope", &l)
	}
	return strings.Join(labels, ".")
}

func decodeNameTable(c *cursor, info *domain.HostInfo, maxNames int) {
	declared := int(info.Header.NumberOfNames)
	table := c.take("name table", declared*domain.NameRecordSize)
	if table == nil {
		return
	}

	keep := min(declared, maxNames)
	info.NamesTruncated = declared > keep
	info.Names = make([]domain.NameRecord, keep)
	for i := range info.Names {
		rec := table[i*domain.NameRecordSize : (i+1)*domain.NameRecordSize]
		copy(info.Names[i].Name[:], rec[:domain.NameSize])
		info.Names[i].Flags = binary.BigEndian.Uint16(rec[domain.NameSize:])
	}
}

func decodeAdapterStatus(c *cursor, s *domain.AdapterStatus) {
	c.block("unit id", s.UnitID[:])
	c.u8("version major", &s.VersionMajor)
	c.u8("version minor", &s.VersionMinor)
	c.u16("duration", &s.Duration)
	c.u16("frmrs received", &s.FRMRsReceived)
	c.u16("frmrs transmitted", &s.FRMRsTransmitted)
	c.u16("iframe receive errors", &s.IFrameReceiveErrors)
	c.u16("transmit aborts", &s.TransmitAborts)
	c.u32("transmitted", &s.Transmitted)
	c.u32("received", &s.Received)
	c.u16("iframe transmit errors", &s.IFrameTransmitErrors)
	c.u16("no receive buffer", &s.NoReceiveBuffer)
	c.u16("t1 timeouts", &s.T1Timeouts)
	c.u16("ti timeouts", &s.TiTimeouts)
	c.u16("free ncbs", &s.FreeNCBs)
	c.u16("ncbs", &s.NCBs)
	c.u16("max ncbs", &s.MaxNCBs)
	c.u16("no transmit buffers", &s.NoTransmitBuffers)
	c.u16("max datagram", &s.MaxDatagram)
	c.u16("pending sessions", &s.PendingSessions)
	c.u16("max sessions", &s.MaxSessions)
	c.u16("packet sessions", &s.PacketSessions)
}
