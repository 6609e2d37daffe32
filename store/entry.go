// Package store implements the keyed value map: TTL tracking, lazy and
// periodic expiry, LFU eviction against a memory ceiling, and the
// incremental memory estimator that drives eviction.
//
// Grounded on myredis/db (basic.go's set/get/del, ttl.go's lazy-expiry
// getEntity helper distinguishing a stat-mutating Get from a
// non-mutating Peek) and pkg/lru/lfu.go's bucketed frequency-list
// eviction structure, generalized here from a generic Value interface
// to the fixed byte-slice Entry this system stores. Unlike the
// teacher, this package holds no channel, goroutine, or lock: the
// event loop is the only caller and owns it exclusively.
package store

// entryOverheadBytes is the fixed per-entry cost added to len(key)+len(val)
// by the memory estimator in spec §4.2.
const entryOverheadBytes = 40

// Entry is the stored value for one key.
type Entry struct {
	Val          []byte
	ExpiresAtMs  int64 // 0 means no expiry
	AccessCount  uint32
	LastAccessMs int64
}

// HasExpiry reports whether the entry carries a finite TTL.
func (e *Entry) HasExpiry() bool { return e.ExpiresAtMs != 0 }

func footprint(key string, val []byte) int64 {
	return int64(len(key)) + int64(len(val)) + entryOverheadBytes
}
