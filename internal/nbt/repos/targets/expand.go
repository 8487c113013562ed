// Package targets turns target expressions (addresses, CIDR blocks and
// ranges) from the command line, environment or target files into an
// ordered list of addresses to scan.
package targets

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// MaxExpansion caps how many addresses a single expression may produce.
const MaxExpansion = 1 << 16

var (
	errEmptyTarget    = errors.New("empty target")
	errIPv6Expansion  = errors.New("IPv6 prefixes and ranges are not supported")
	errRangeBackwards = errors.New("range end is before range start")
)

// Expand parses one target expression. Accepted forms are a single
// address ("10.0.0.5"), a CIDR block ("10.0.0.0/24", network and broadcast
// excluded below /31), a last-octet range ("10.0.0.5-20") and a full range
// ("10.0.0.250-10.0.1.5").
func Expand(expr string) ([]netip.Addr, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errEmptyTarget
	}

	switch {
	case strings.Contains(expr, "/"):
		return expandPrefix(expr)
	case strings.Contains(expr, "-"):
		return expandRange(expr)
	}

	addr, err := netip.ParseAddr(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", expr, err)
	}
	return []netip.Addr{addr.Unmap()}, nil
}

func expandPrefix(expr string) ([]netip.Addr, error) {
	prefix, err := netip.ParsePrefix(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", expr, err)
	}
	prefix = prefix.Masked()
	if !prefix.Addr().Is4() {
		return nil, fmt.Errorf("target %q: %w", expr, errIPv6Expansion)
	}

	bits := prefix.Bits()
	if 32-bits > 16 {
		return nil, fmt.Errorf("target %q expands past %d addresses", expr, MaxExpansion)
	}

	first := prefix.Addr()
	last := lastInPrefix(prefix)
	if bits < 31 {
		first = first.Next()
		last = last.Prev()
	}
	return collect(first, last), nil
}

func expandRange(expr string) ([]netip.Addr, error) {
	lo, hi, _ := strings.Cut(expr, "-")
	start, err := netip.ParseAddr(strings.TrimSpace(lo))
	if err != nil {
		return nil, fmt.Errorf("invalid range start in %q: %w", expr, err)
	}
	if !start.Is4() {
		return nil, fmt.Errorf("target %q: %w", expr, errIPv6Expansion)
	}

	hi = strings.TrimSpace(hi)
	var end netip.Addr
	if octet, err := strconv.ParseUint(hi, 10, 8); err == nil {
		b := start.As4()
		b[3] = byte(octet)
		end = netip.AddrFrom4(b)
	} else if end, err = netip.ParseAddr(hi); err != nil || !end.Is4() {
		return nil, fmt.Errorf("invalid range end in %q", expr)
	}

	if end.Less(start) {
		return nil, fmt.Errorf("target %q: %w", expr, errRangeBackwards)
	}
	if span(start, end) > MaxExpansion {
		return nil, fmt.Errorf("target %q expands past %d addresses", expr, MaxExpansion)
	}
	return collect(start, end), nil
}

func lastInPrefix(p netip.Prefix) netip.Addr {
	b := p.Addr().As4()
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	v |= ^uint32(0) >> p.Bits()
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func span(start, end netip.Addr) uint64 {
	s, e := start.As4(), end.As4()
	sv := uint64(s[0])<<24 | uint64(s[1])<<16 | uint64(s[2])<<8 | uint64(s[3])
	ev := uint64(e[0])<<24 | uint64(e[1])<<16 | uint64(e[2])<<8 | uint64(e[3])
	return ev - sv + 1
}

// collect returns every address from first to last inclusive.
func collect(first, last netip.Addr) []netip.Addr {
	if last.Less(first) {
		return nil
	}
	out := make([]netip.Addr, 0, span(first, last))
	for a := first; ; a = a.Next() {
		out = append(out, a)
		if a == last {
			break
		}
	}
	return out
}

// Set accumulates addresses in insertion order without duplicates.
type Set struct {
	order []netip.Addr
	seen  map[netip.Addr]struct{}
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{seen: make(map[netip.Addr]struct{})}
}

// Add expands expr and appends the addresses not already present. It
// returns how many were new.
func (s *Set) Add(expr string) (int, error) {
	addrs, err := Expand(expr)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, a := range addrs {
		if _, ok := s.seen[a]; ok {
			continue
		}
		s.seen[a] = struct{}{}
		s.order = append(s.order, a)
		added++
	}
	return added, nil
}

// Addrs returns the addresses in the order they were first added.
func (s *Set) Addrs() []netip.Addr {
	return append([]netip.Addr(nil), s.order...)
}

// Resolve expands every expression into one de-duplicated list. Invalid expressions
// are collected and reported together.
func Resolve(exprs []string) ([]netip.Addr, error) {
	set := NewSet()
	var errs []error
	for _, expr := range exprs {
		if _, err := set.Add(expr); err != nil {
			errs = append(errs, err)
		}
	}
	return set.Addrs(), errors.Join(errs...)
}
