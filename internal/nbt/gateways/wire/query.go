package wire

import (
	"encoding/binary"

	"github.com/haukened/rr-nbt/internal/nbt/domain"
)

// EncodeStatusQuery builds a broadcast NBSTAT query for the wildcard name.
// With an empty scope the packet is 50 bytes.
func EncodeStatusQuery(id uint16, scope string) []byte {
	qname := EncodeName(domain.WildcardName, 0x00, scope)

	buf := make([]byte, 0, domain.HeaderSize+len(qname)+4)
	buf = binary.BigEndian.AppendUint16(buf, id)
	buf = binary.BigEndian.AppendUint16(buf, domain.FlagBroadcast)
	buf = binary.BigEndian.AppendUint16(buf, 1) // QDCOUNT
	buf = binary.BigEndian.AppendUint16(buf, 0) // ANCOUNT
	buf = binary.BigEndian.AppendUint16(buf, 0) // NSCOUNT
	buf = binary.BigEndian.AppendUint16(buf, 0) // ARCOUNT
	buf = append(buf, qname...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(domain.QuestionTypeNBSTAT))
	buf = binary.BigEndian.AppendUint16(buf, domain.QuestionClassIN)
	return buf
}
