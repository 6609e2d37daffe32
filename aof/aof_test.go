package aof

import (
	"os"
	"path/filepath"
	"testing"

	"redisloop/resp"
)

func TestWriterEnableAppendReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.aof")
	w := New(path, SyncNo)
	if w.Enabled() {
		t.Fatalf("writer should start disabled")
	}
	if err := w.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	frame := resp.NewCommandArray([][]byte{[]byte("SET"), []byte("k"), []byte("v")})
	if err := w.Append(resp.Serialize(frame)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var replayed [][]byte
	if err := Replay(path, func(args [][]byte) error {
		replayed = append(replayed, args[0])
		return nil
	}); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(replayed) != 1 || string(replayed[0]) != "SET" {
		t.Fatalf("replayed = %v, want one SET frame", replayed)
	}
}

func TestReplayMissingFileIsNotAnError(t *testing.T) {
	if err := Replay(filepath.Join(t.TempDir(), "missing.aof"), func([][]byte) error {
		t.Fatalf("dispatch should not be called for a missing file")
		return nil
	}); err != nil {
		t.Fatalf("Replay(missing) = %v, want nil", err)
	}
}

func TestReplayAbortsOnCorruptSuffix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.aof")
	good := resp.Serialize(resp.NewCommandArray([][]byte{[]byte("SET"), []byte("k"), []byte("v")}))
	if err := os.WriteFile(path, append(good, []byte("*not-a-valid-frame")...), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var calls int
	err := Replay(path, func(args [][]byte) error {
		calls++
		return nil
	})
	if err == nil {
		t.Fatalf("expected Replay to fail on the corrupt suffix")
	}
	if calls != 1 {
		t.Fatalf("expected exactly the leading well-formed frame to be dispatched, got %d calls", calls)
	}
}

func TestEnableDisableReopensSameFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.aof")
	w := New(path, SyncNo)
	if err := w.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	w.Append(resp.Serialize(resp.NewCommandArray([][]byte{[]byte("SET"), []byte("a"), []byte("1")})))
	w.Disable()
	if w.Enabled() {
		t.Fatalf("expected writer disabled")
	}
	if err := w.Enable(); err != nil {
		t.Fatalf("re-Enable: %v", err)
	}
	w.Append(resp.Serialize(resp.NewCommandArray([][]byte{[]byte("SET"), []byte("b"), []byte("2")})))
	w.Close()

	var keys []string
	Replay(path, func(args [][]byte) error {
		keys = append(keys, string(args[1]))
		return nil
	})
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("keys = %v, want [a b] (both writes landed in the same file)", keys)
	}
}

func TestMaintainFsyncRespectsPolicyAndInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.aof")
	w := New(path, SyncNo)
	w.Enable()
	defer w.Close()
	if err := w.MaintainFsync(1000); err != nil {
		t.Fatalf("MaintainFsync with policy=no should be a no-op, got %v", err)
	}
	if w.lastFsyncMs != 0 {
		t.Fatalf("lastFsyncMs = %d after policy=no, want 0 (no fsync)", w.lastFsyncMs)
	}

	w.SetPolicy(SyncEverySec)
	if err := w.MaintainFsync(1000); err != nil {
		t.Fatalf("MaintainFsync: %v", err)
	}
	if w.lastFsyncMs != 1000 {
		t.Fatalf("lastFsyncMs = %d, want 1000 (fsync once a second has elapsed)", w.lastFsyncMs)
	}
	if err := w.MaintainFsync(1500); err != nil {
		t.Fatalf("MaintainFsync: %v", err)
	}
	if w.lastFsyncMs != 1000 {
		t.Fatalf("lastFsyncMs = %d, want 1000 (no fsync within the interval)", w.lastFsyncMs)
	}
}

func TestParseSyncPolicyRejectsUnknown(t *testing.T) {
	if _, err := ParseSyncPolicy("sometimes"); err == nil {
		t.Fatalf("expected error for unknown sync policy")
	}
}
