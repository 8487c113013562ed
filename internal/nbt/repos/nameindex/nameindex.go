// Package nameindex maps NetBIOS names seen during scans to the addresses
// that registered them.
package nameindex

import (
	"net/netip"
	"slices"
	"strings"
	"sync"

	"github.com/haukened/rr-nbt/internal/nbt/domain"
	"github.com/haukened/rr-nbt/internal/nbt/services/scanner"
)

// NameIndex is an in-memory implementation of scanner.NameIndex.
// Names are matched case-insensitively, ignoring the suffix byte.
type NameIndex struct {
	mu     sync.RWMutex
	byName map[string][]netip.Addr
	byAddr map[netip.Addr][]string
	//     addr → names it registered, for replacement on rescan
}

// New creates an empty NameIndex.
func New() *NameIndex {
	return &NameIndex{
		byName: make(map[string][]netip.Addr),
		byAddr: make(map[netip.Addr][]string),
	}
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Add replaces every name previously indexed for addr with the names in host.
func (x *NameIndex) Add(addr netip.Addr, host domain.HostInfo) {
	addr = addr.Unmap()

	var names []string
	for _, rec := range host.Names {
		n := normalize(rec.Name.Name())
		if n == "" || slices.Contains(names, n) {
			continue
		}
		names = append(names, n)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.removeLocked(addr)
	if len(names) == 0 {
		return
	}
	x.byAddr[addr] = names
	for _, n := range names {
		x.byName[n] = append(x.byName[n], addr)
	}
}

func (x *NameIndex) removeLocked(addr netip.Addr) {
	for _, n := range x.byAddr[addr] {
		addrs := slices.DeleteFunc(x.byName[n], func(a netip.Addr) bool { return a == addr })
		if len(addrs) == 0 {
			delete(x.byName, n)
			continue
		}
		x.byName[n] = addrs
	}
	delete(x.byAddr, addr)
}

// Remove drops addr from the index.
func (x *NameIndex) Remove(addr netip.Addr) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(addr.Unmap())
}

// Lookup returns the addresses that registered name, in the order they
// were indexed.
func (x *NameIndex) Lookup(name string) []netip.Addr {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return slices.Clone(x.byName[normalize(name)])
}

// Len returns the number of distinct names indexed.
func (x *NameIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byName)
}

var _ scanner.NameIndex = (*NameIndex)(nil)
