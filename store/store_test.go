package store

import "testing"

func TestSetThenGetWithinTTL(t *testing.T) {
	ks := New(1 << 20)
	ks.Set("a", []byte("1"), 0, 1000)
	v, ok := ks.Get("a", 1000)
	if !ok || string(v) != "1" {
		t.Fatalf("Get = %q, %v; want 1, true", v, ok)
	}
}

func TestGetAfterExpiryReturnsMiss(t *testing.T) {
	ks := New(1 << 20)
	ks.Set("k", []byte("v"), 1050, 1000) // expires at ms 1050
	if _, ok := ks.Get("k", 1049); !ok {
		t.Fatalf("expected key still live just before expiry")
	}
	ks.Set("k", []byte("v"), 1050, 1000)
	if _, ok := ks.Get("k", 1050); ok {
		t.Fatalf("expected key expired at expires_at_ms")
	}
	if _, tracked := ks.expiry["k"]; tracked {
		t.Fatalf("expiry index should have been cleared on lazy expiry")
	}
}

func TestSetWithoutTTLClearsPriorExpiry(t *testing.T) {
	ks := New(1 << 20)
	ks.Set("k", []byte("v1"), 5000, 1000)
	ks.Set("k", []byte("v2"), 0, 1000)
	if _, tracked := ks.expiry["k"]; tracked {
		t.Fatalf("expiry index entry should be cleared when SET carries no TTL")
	}
	v, ok := ks.Get("k", 999999999)
	if !ok || string(v) != "v2" {
		t.Fatalf("Get = %q, %v; want v2, true (no expiry)", v, ok)
	}
}

func TestDelCountsOnlyLiveRemovals(t *testing.T) {
	ks := New(1 << 20)
	ks.Set("live", []byte("v"), 0, 1000)
	ks.Set("expired", []byte("v"), 1050, 1000)
	n := ks.Del([]string{"live", "expired", "missing"}, 2000)
	if n != 1 {
		t.Fatalf("Del count = %d, want 1 (only 'live')", n)
	}
	if ks.Len() != 0 {
		t.Fatalf("Len = %d, want 0 (all three removed or absent)", ks.Len())
	}
}

func TestDelOnEmptyStoreReturnsZero(t *testing.T) {
	ks := New(1 << 20)
	if n := ks.Del([]string{"x", "y"}, 1000); n != 0 {
		t.Fatalf("Del count = %d, want 0", n)
	}
}

func TestSweepRemovesExactlyExpiredEntries(t *testing.T) {
	ks := New(1 << 20)
	ks.Set("a", []byte("1"), 1050, 1000)
	ks.Set("b", []byte("2"), 5000, 1000)
	ks.Set("c", []byte("3"), 0, 1000)
	ks.Sweep(2000)
	if ks.Exists("a", 2000) {
		t.Fatalf("expected 'a' removed by sweep")
	}
	if !ks.Exists("b", 2000) || !ks.Exists("c", 2000) {
		t.Fatalf("sweep removed a non-expired key")
	}
}

func TestExpiryIndexConsistency(t *testing.T) {
	ks := New(1 << 20)
	ks.Set("a", []byte("1"), 5000, 1000)
	ks.Set("b", []byte("2"), 0, 1000)
	ks.Del([]string{"a"}, 1000)

	for key, exp := range ks.expiry {
		ent, ok := ks.entries[key]
		if !ok || ent.ExpiresAtMs != exp {
			t.Fatalf("expiry index entry %q=%d inconsistent with keyspace", key, exp)
		}
	}
	for key, ent := range ks.entries {
		if ent.HasExpiry() {
			if exp, tracked := ks.expiry[key]; !tracked || exp != ent.ExpiresAtMs {
				t.Fatalf("keyspace entry %q has expiry but is missing from expiry index", key)
			}
		}
	}
}

func TestEvictionRemovesLeastAccessedFirst(t *testing.T) {
	ks := New(1 << 20)
	ks.Set("cold", []byte("v"), 0, 1000)
	ks.Set("hot", []byte("v"), 0, 1000)
	ks.Get("hot", 1000)
	ks.Get("hot", 1000)

	// A target equal to hot's footprint requires exactly one eviction.
	ks.EvictTo(footprint("hot", []byte("v")))

	if ks.Exists("cold", 1000) {
		t.Fatalf("expected the never-accessed key to be evicted first")
	}
	if !ks.Exists("hot", 1000) {
		t.Fatalf("expected the frequently-accessed key to survive eviction")
	}
	if ks.EvictionsTotal() != 1 {
		t.Fatalf("EvictionsTotal = %d, want 1", ks.EvictionsTotal())
	}
}

func TestMemoryBoundAfterSets(t *testing.T) {
	const limit = 200
	ks := New(limit)
	var lastFootprint int64
	for i := 0; i < 100; i++ {
		key := "key" + string(rune('a'+i%26))
		val := []byte("0123456789")
		lastFootprint = footprint(key, val)
		ks.Set(key, val, 0, 1000)
	}
	if ks.EstimatedBytes() > limit+lastFootprint {
		t.Fatalf("EstimatedBytes = %d, want <= limit(%d) + last footprint(%d)", ks.EstimatedBytes(), limit, lastFootprint)
	}
}

func TestSetMaxMemoryLoweringTriggersImmediateEviction(t *testing.T) {
	ks := New(1 << 20)
	ks.Set("a", []byte("aaaaaaaaaa"), 0, 1000)
	ks.Set("b", []byte("bbbbbbbbbb"), 0, 1000)
	ks.Get("b", 1000)

	// One byte below current usage; 0.8x this limit still fits "b" alone.
	ks.SetMaxMemory(2*footprint("b", []byte("bbbbbbbbbb")) - 1)

	if ks.Exists("a", 1000) {
		t.Fatalf("expected lowering maxmemory to evict the colder key immediately")
	}
	if !ks.Exists("b", 1000) {
		t.Fatalf("expected the hotter key to survive")
	}
}

func TestEvictionNeverRemovesKeyBeingWritten(t *testing.T) {
	ks := New(footprint("only", []byte("v")))
	ks.Set("only", []byte("v"), 0, 1000)
	if !ks.Exists("only", 1000) {
		t.Fatalf("the single inserted key must survive its own SET even though it is at the memory limit")
	}
}
