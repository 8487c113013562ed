// Package seen de-duplicates responders during a broadcast sweep with a
// Bloom filter, so a host answering twice is reported once.
package seen

import (
	"net/netip"
	"sync"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/rr-nbt/internal/nbt/services/scanner"
)

// filter wraps a bits-and-blooms filter. Seen is a test-and-add, so it
// takes the write lock.
type filter struct {
	mu sync.Mutex
	bf *bitsbloom.BloomFilter
}

// New returns a SeenFilter sized for capacity addresses at fpRate.
func New(capacity uint64, fpRate float64) scanner.SeenFilter {
	m, k := size(capacity, fpRate)
	return &filter{bf: bitsbloom.New(m, k)}
}

// Seen reports whether addr was probably recorded before and records it.
func (f *filter) Seen(addr netip.Addr) bool {
	key, _ := addr.Unmap().MarshalBinary()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bf.TestAndAdd(key)
}

// Reset forgets every address.
func (f *filter) Reset() {
	f.mu.Lock()
	f.bf.ClearAll()
	f.mu.Unlock()
}

var _ scanner.SeenFilter = (*filter)(nil)
