package wire

import (
	"errors"
	"fmt"
	"strings"

	"github.com/haukened/rr-nbt/internal/nbt/domain"
)

// encodedNameLen is the length byte value that precedes the 32 nibble bytes.
const encodedNameLen = 2 * domain.NameSize

var (
	errNameTooShort      = errors.New("encoded name too short")
	errBadNameLength     = errors.New("encoded name length must be 32")
	errMissingTerminator = errors.New("encoded name is missing its terminator")
	errCompressedLabel   = errors.New("compressed scope labels are not supported")
)

// EncodeName returns the RFC 1001 first-level encoding of name, suffix and scope.
//
// The name is space padded (or truncated) to 15 bytes with suffix as byte 16;
// the wildcard "*" is instead '*' followed by 15 NUL bytes. Bytes are upper-cased
// and split into nibbles, each written as 'A'+nibble. Scope labels follow, each
// prefixed by its length, and a zero byte ends the name. Empty labels (as in
// "a..b" or a leading dot) are skipped rather than written as a zero length
// that would end the name early. Callers reject such scopes, along with label
// and total length violations, through domain.ValidateScope.
func EncodeName(name string, suffix byte, scope string) []byte {
	var raw domain.NetBIOSName
	if name == domain.WildcardName {
		raw[0] = '*'
	} else {
		raw = domain.NewNetBIOSName(name, suffix)
	}

	out := make([]byte, 0, 1+encodedNameLen+len(scope)+2)
	out = append(out, encodedNameLen)
	for _, c := range raw {
		c = upper(c)
		out = append(out, 'A'+(c>>4), 'A'+(c&0x0F))
	}

	if scope != "" {
		for _, label := range strings.Split(scope, ".") {
			if label == "" {
				continue
			}
			out = append(out, byte(len(label)))
			out = append(out, label...)
		}
	}
	return append(out, 0)
}

// DecodeName reverses EncodeName. It returns the raw 16-byte name, the dotted
// scope and the number of bytes consumed from b.
func DecodeName(b []byte) (domain.NetBIOSName, string, int, error) {
	var name domain.NetBIOSName
	if len(b) < 1+encodedNameLen {
		return name, "", 0, errNameTooShort
	}
	if b[0] != encodedNameLen {
		return name, "", 0, errBadNameLength
	}
	for i := range name {
		hi, lo := b[1+2*i]-'A', b[2+2*i]-'A'
		if hi > 0x0F || lo > 0x0F {
			return domain.NetBIOSName{}, "", 0, fmt.Errorf("invalid name character at offset %d", 1+2*i)
		}
		name[i] = hi<<4 | lo
	}

	var labels []string
	off := 1 + encodedNameLen
	for {
		if off >= len(b) {
			return domain.NetBIOSName{}, "", 0, errMissingTerminator
		}
		l := int(b[off])
		off++
		if l == 0 {
			break
		}
		if l&0xC0 != 0 {
			return domain.NetBIOSName{}, "", 0, errCompressedLabel
		}
		if off+l > len(b) {
			return domain.NetBIOSName{}, "", 0, fmt.Errorf("scope label length %d out of bounds", l)
		}
		labels = append(labels, string(b[off:off+l]))
		off += l
	}
	return name, strings.Join(labels, "."), off, nil
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
