package store

// Keyspace holds the string-valued map, its expiry index, and the
// LFU eviction structure, plus the running memory estimate the eviction
// policy is measured against. It is not safe for concurrent use: the
// event loop is its sole caller and touches it only between reads of
// one connection's frame and the next.
type Keyspace struct {
	entries map[string]*Entry
	nodes   map[string]*node
	expiry  map[string]int64 // key -> ExpiresAtMs, mirrors entries with HasExpiry()

	buckets *countBuckets

	estimatedBytes int64
	maxBytes       int64
	evictionsTotal int64
}

// New builds an empty keyspace with the given memory limit in bytes.
func New(maxBytes int64) *Keyspace {
	return &Keyspace{
		entries: make(map[string]*Entry),
		nodes:   make(map[string]*node),
		expiry:  make(map[string]int64),
		buckets: newCountBuckets(),
		maxBytes: maxBytes,
	}
}

// EstimatedBytes returns the current memory estimate.
func (k *Keyspace) EstimatedBytes() int64 { return k.estimatedBytes }

// MaxBytes returns the configured memory ceiling.
func (k *Keyspace) MaxBytes() int64 { return k.maxBytes }

// EvictionsTotal returns the cumulative number of entries removed by
// EvictTo since the keyspace was created.
func (k *Keyspace) EvictionsTotal() int64 { return k.evictionsTotal }

// Len returns the number of entries in the map without forcing a sweep,
// so keys that are expired but not yet lazily or periodically removed
// are still counted — the same "raw map size" semantics DBSIZE exposes.
func (k *Keyspace) Len() int { return len(k.entries) }

// SetMaxMemory changes the memory ceiling. If usage now exceeds the new
// limit, an eviction pass runs immediately down to 0.8x the new limit,
// mirroring the eviction a SET would trigger.
func (k *Keyspace) SetMaxMemory(maxBytes int64) {
	k.maxBytes = maxBytes
	if k.maxBytes > 0 && k.estimatedBytes > k.maxBytes {
		k.EvictTo(evictionTarget(k.maxBytes))
	}
}

func evictionTarget(limit int64) int64 {
	return (limit * 8) / 10
}

// Set inserts or replaces the entry for key. expiresAtMs of 0 means no
// expiry; SET always clears any previous TTL when expiresAtMs is 0,
// per this system's resolution of spec's TTL-carryover open question.
// AccessCount is reset to 1 on every Set, including updates to an
// existing key.
//
// Any prior entry for key is detached before the eviction check runs,
// so an update to a cold key can never cause that same key to be
// selected for eviction; the new entry is (re)inserted only after
// eviction completes, matching spec §4.2's "eviction never removes a
// key being written by the current SET".
func (k *Keyspace) Set(key string, val []byte, expiresAtMs int64, nowMs int64) {
	k.remove(key)

	if maxBytes := k.maxBytes; maxBytes > 0 && k.estimatedBytes > maxBytes {
		k.EvictTo(evictionTarget(maxBytes))
	}

	k.entries[key] = &Entry{Val: val, ExpiresAtMs: expiresAtMs, AccessCount: 1, LastAccessMs: nowMs}
	k.nodes[key] = k.buckets.insert(key, 1)
	k.estimatedBytes += footprint(key, val)
	if expiresAtMs != 0 {
		k.expiry[key] = expiresAtMs
	}
}

// Get returns the value for key, lazily expiring it first if its TTL
// has elapsed. A hit bumps AccessCount and LastAccessMs.
func (k *Keyspace) Get(key string, nowMs int64) ([]byte, bool) {
	k.expireIfDue(key, nowMs)
	ent, ok := k.entries[key]
	if !ok {
		return nil, false
	}
	ent.AccessCount++
	ent.LastAccessMs = nowMs
	k.buckets.touch(k.nodes[key], ent.AccessCount)
	return ent.Val, true
}

// Peek returns the value for key like Get, without mutating LFU stats.
// Used by Exists (and so by the read-only EXISTS command) so it
// doesn't distort eviction ordering.
func (k *Keyspace) Peek(key string, nowMs int64) ([]byte, bool) {
	k.expireIfDue(key, nowMs)
	ent, ok := k.entries[key]
	if !ok {
		return nil, false
	}
	return ent.Val, true
}

// Exists reports whether key is present after lazy expiry, without
// mutating LFU stats.
func (k *Keyspace) Exists(key string, nowMs int64) bool {
	_, ok := k.Peek(key, nowMs)
	return ok
}

// Del removes each key that is present and not expired, first applying
// lazy expiry. It returns the count of keys that were live and removed;
// a key found already-expired is removed but does not count.
func (k *Keyspace) Del(keys []string, nowMs int64) int {
	count := 0
	for _, key := range keys {
		expiredNow := k.expireIfDue(key, nowMs)
		if expiredNow {
			continue
		}
		if k.remove(key) {
			count++
		}
	}
	return count
}

// Sweep removes every entry whose ExpiresAtMs has elapsed as of nowMs.
func (k *Keyspace) Sweep(nowMs int64) {
	for key, exp := range k.expiry {
		if exp <= nowMs {
			k.remove(key)
		}
	}
}

// EvictTo removes lowest-access-count entries (ties broken by LRU
// order) until EstimatedBytes <= targetBytes or the keyspace is empty.
func (k *Keyspace) EvictTo(targetBytes int64) {
	for k.estimatedBytes > targetBytes {
		key, ok := k.buckets.evictCandidate()
		if !ok {
			return
		}
		if k.remove(key) {
			k.evictionsTotal++
		}
	}
}

// expireIfDue removes key if it carries an expiry that has elapsed as
// of nowMs, and reports whether it did so.
func (k *Keyspace) expireIfDue(key string, nowMs int64) bool {
	exp, tracked := k.expiry[key]
	if !tracked || exp > nowMs {
		return false
	}
	k.remove(key)
	return true
}

// remove deletes key from every index if present, and reports whether
// it was present.
func (k *Keyspace) remove(key string) bool {
	ent, ok := k.entries[key]
	if !ok {
		return false
	}
	k.estimatedBytes -= footprint(key, ent.Val)
	delete(k.entries, key)
	delete(k.expiry, key)
	if n, ok := k.nodes[key]; ok {
		k.buckets.remove(n)
		delete(k.nodes, key)
	}
	return true
}
