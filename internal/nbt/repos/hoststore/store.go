// Package hoststore persists the last node status reply from each host in a
// bbolt database. Replies are kept as raw datagrams and decoded on read, so
// stored data always reflects the current decoder.
package hoststore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/rr-nbt/internal/nbt/domain"
	"github.com/haukened/rr-nbt/internal/nbt/gateways/wire"
	"github.com/haukened/rr-nbt/internal/nbt/services/scanner"
)

var (
	bucketHosts = []byte("hosts")
	bucketMeta  = []byte("meta")

	keyScans   = []byte("scans")
	keyUpdated = []byte("updated")
)

// valueHeader is the received-at unix nanos followed by the RTT in nanos.
const valueHeader = 16

var errCorruptValue = errors.New("stored host value is too short")

// boltStore implements scanner.HostStore using bbolt.
type boltStore struct {
	db    *bbolt.DB
	codec wire.NBTCodec
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string, codec wire.NBTCodec) (scanner.HostStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open host store %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketHosts); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db: db, codec: codec}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

// Put records the raw reply in res. Results without a datagram are ignored.
func (s *boltStore) Put(res domain.ScanResult) error {
	if !res.Addr.IsValid() || len(res.Raw) == 0 {
		return nil
	}
	key, err := res.Addr.Unmap().MarshalBinary()
	if err != nil {
		return err
	}

	val := make([]byte, valueHeader, valueHeader+len(res.Raw))
	binary.BigEndian.PutUint64(val[0:8], uint64(res.ReceivedAt.UnixNano()))
	binary.BigEndian.PutUint64(val[8:16], uint64(res.RTT))
	val = append(val, res.Raw...)

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketHosts).Put(key, val); err != nil {
			return err
		}
		return putUint64(tx.Bucket(bucketMeta), keyUpdated, uint64(res.ReceivedAt.UnixNano()))
	})
}

// Get returns the stored reply for addr, decoded. A reply that was
// truncated when received comes back with its decode error in Err.
func (s *boltStore) Get(addr netip.Addr) (domain.ScanResult, bool, error) {
	key, err := addr.Unmap().MarshalBinary()
	if err != nil {
		return domain.ScanResult{}, false, err
	}

	var val []byte
	err = s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketHosts).Get(key); v != nil {
			val = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || val == nil {
		return domain.ScanResult{}, false, err
	}
	if len(val) < valueHeader {
		return domain.ScanResult{}, false, fmt.Errorf("%s: %w", addr, errCorruptValue)
	}

	raw := val[valueHeader:]
	host, decodeErr := s.codec.DecodeStatusResponse(raw)
	return domain.ScanResult{
		Addr:       addr.Unmap(),
		Host:       host,
		RTT:        time.Duration(binary.BigEndian.Uint64(val[8:16])),
		ReceivedAt: time.Unix(0, int64(binary.BigEndian.Uint64(val[0:8]))),
		Err:        decodeErr,
		Raw:        raw,
	}, true, nil
}

// List returns every stored address in key order.
func (s *boltStore) List() ([]netip.Addr, error) {
	var out []netip.Addr
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketHosts).ForEach(func(k, _ []byte) error {
			var a netip.Addr
			if err := a.UnmarshalBinary(k); err != nil {
				return err
			}
			out = append(out, a)
			return nil
		})
	})
	return out, err
}

// MarkScan counts a completed sweep.
func (s *boltStore) MarkScan(at time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		scans := getUint64(b, keyScans) + 1
		if err := putUint64(b, keyScans, scans); err != nil {
			return err
		}
		return putUint64(b, keyUpdated, uint64(at.UnixNano()))
	})
}

func (s *boltStore) Stats() (scanner.StoreStats, error) {
	var st scanner.StoreStats
	err := s.db.View(func(tx *bbolt.Tx) error {
		st.Hosts = uint64(tx.Bucket(bucketHosts).Stats().KeyN)
		b := tx.Bucket(bucketMeta)
		st.Scans = getUint64(b, keyScans)
		if u := getUint64(b, keyUpdated); u != 0 {
			st.Updated = time.Unix(0, int64(u))
		}
		return nil
	})
	return st, err
}

func getUint64(b *bbolt.Bucket, key []byte) uint64 {
	if v := b.Get(key); len(v) == 8 {
		return binary.BigEndian.Uint64(v)
	}
	return 0
}

func putUint64(b *bbolt.Bucket, key []byte, v uint64) error {
	return b.Put(key, binary.BigEndian.AppendUint64(nil, v))
}

var _ scanner.HostStore = (*boltStore)(nil)
