package domain

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	// NameSize is the length of a raw NetBIOS name: 15 name bytes plus the suffix byte.
	NameSize = 16

	// WildcardName asks a node for its whole name table.
	WildcardName = "*"

	// MaxScopeLabel is the longest scope label allowed on the wire.
	MaxScopeLabel = 63

	// MaxScopeLength is the room left for encoded scope labels and the root
	// terminator once the length byte and the 32 nibble bytes are counted.
	MaxScopeLength = 255 - 1 - 32
)

// NetBIOSName is a raw 16-byte NetBIOS name as it appears in a node status name table.
// Byte 15 is the service suffix.
type NetBIOSName [NameSize]byte

// NewNetBIOSName pads name with spaces to 15 bytes and appends suffix.
// Longer names are truncated. No case conversion is applied.
func NewNetBIOSName(name string, suffix byte) NetBIOSName {
	var n NetBIOSName
	for i := range n[:NameSize-1] {
		if i < len(name) {
			n[i] = name[i]
		} else {
			n[i] = ' '
		}
	}
	n[NameSize-1] = suffix
	return n
}

// Name returns the printable part of the name with padding stripped.
func (n NetBIOSName) Name() string {
	return string(bytes.TrimRight(n[:NameSize-1], " \x00"))
}

// Suffix returns the service byte.
func (n NetBIOSName) Suffix() byte {
	return n[NameSize-1]
}

// String renders the name the way nbtstat does, e.g. "FILESRV<20>".
func (n NetBIOSName) String() string {
	return fmt.Sprintf("%s<%02X>", n.Name(), n.Suffix())
}

// ValidateScope checks a dotted NetBIOS scope against the DNS label limits.
// An empty scope is valid.
func ValidateScope(scope string) error {
	if scope == "" {
		return nil
	}
	if len(scope)+2 > MaxScopeLength {
		return fmt.Errorf("scope too long: %d bytes (max %d)", len(scope), MaxScopeLength-2)
	}
	for _, label := range strings.Split(scope, ".") {
		if label == "" {
			return fmt.Errorf("scope %q contains an empty label", scope)
		}
		if len(label) > MaxScopeLabel {
			return fmt.Errorf("scope label too long: %s", label)
		}
	}
	return nil
}
