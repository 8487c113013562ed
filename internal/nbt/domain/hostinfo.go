package domain

import (
	"net/netip"
	"strings"
	"time"
)

// DefaultMaxNames is the name table capacity used when callers don't pick one.
const DefaultMaxNames = 100

// HostInfo is a decoded node status response. It is filled in field order by
// the decoder and not modified afterwards.
type HostInfo struct {
	Header ResponseHeader
	Names  []NameRecord
	Footer AdapterStatus

	// NamesTruncated is set when the response declared more names than the
	// decoder's capacity.
	NamesTruncated bool
	// Complete is set only when every field, footer included, was decoded.
	Complete bool
}

// Hostname returns the first unique workstation (<00>) name, falling back to
// the first unique file server (<20>) name.
func (h HostInfo) Hostname() string {
	if r, ok := h.find(0x00, true); ok {
		return r.Name.Name()
	}
	if r, ok := h.find(0x20, true); ok {
		return r.Name.Name()
	}
	return ""
}

// Workgroup returns the first group <00> name, the domain or workgroup the
// node belongs to.
func (h HostInfo) Workgroup() string {
	if r, ok := h.find(0x00, false); ok {
		return r.Name.Name()
	}
	return ""
}

// Services returns the catalog description of each name, in table order.
func (h HostInfo) Services() []string {
	out := make([]string, len(h.Names))
	for i, r := range h.Names {
		out[i] = r.Service()
	}
	return out
}

func (h HostInfo) find(suffix byte, unique bool) (NameRecord, bool) {
	for _, r := range h.Names {
		if r.Suffix() == suffix && r.IsUnique() == unique {
			return r, true
		}
	}
	return NameRecord{}, false
}

// NodeInfo is the one-line summary of a host: its name, domain, address and
// the services it advertises.
type NodeInfo struct {
	Name    string
	Domain  string
	IP      string
	Service string
}

// NewNodeInfo summarizes h for the responder at addr. Service lists the
// distinct catalog descriptions separated by ", ".
func NewNodeInfo(h HostInfo, addr netip.Addr) NodeInfo {
	seen := make(map[string]struct{}, len(h.Names))
	var services []string
	for _, s := range h.Services() {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		services = append(services, s)
	}
	info := NodeInfo{
		Name:    h.Hostname(),
		Domain:  h.Workgroup(),
		Service: strings.Join(services, ", "),
	}
	if addr.IsValid() {
		info.IP = addr.String()
	}
	return info
}

// ScanResult is the outcome of querying one target.
type ScanResult struct {
	Addr       netip.Addr
	Host       HostInfo
	RTT        time.Duration
	ReceivedAt time.Time
	Cached     bool
	Err        error

	// Raw is the datagram Host was decoded from, kept for persistence.
	Raw []byte
}

// TransactionID derives the query id from the milliseconds elapsed since
// rttBase, truncated to 16 bits. It doubles as a send timestamp.
func TransactionID(rttBase, now time.Time) uint16 {
	return uint16(now.Sub(rttBase).Milliseconds())
}

// RoundTrip recovers the round trip time from an echoed transaction id.
// Results wrap every 65.536 seconds.
func RoundTrip(id uint16, rttBase, received time.Time) time.Duration {
	elapsed := TransactionID(rttBase, received) - id
	return time.Duration(elapsed) * time.Millisecond
}
