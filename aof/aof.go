// Package aof provides append-only-file durability for mutating
// commands: append the original command frame after a successful
// mutation, and replay the log into the keyspace on startup.
//
// Grounded on myredis/aof/aof.go's open-append-only-file shape, but the
// background goroutine, channel, and time.Ticker there are deliberately
// not carried over: the event loop owns AOF state on its single thread
// (spec §5), so fsync scheduling here is an inline elapsed-time check
// the loop calls on every iteration's maintenance step instead of a
// second thread racing the same file handle.
package aof

import (
	"fmt"
	"os"
)

// SyncPolicy selects how aggressively the writer flushes to disk.
type SyncPolicy string

const (
	SyncEverySec SyncPolicy = "everysec"
	SyncNo       SyncPolicy = "no"
)

func ParseSyncPolicy(s string) (SyncPolicy, error) {
	switch SyncPolicy(s) {
	case SyncEverySec, SyncNo:
		return SyncPolicy(s), nil
	default:
		return "", fmt.Errorf("aof: unknown sync policy %q", s)
	}
}

// Writer owns the AOF file handle and sync bookkeeping. Construction
// only binds a path and policy; Enable performs the actual open, so
// AOF ENABLE at runtime and AOF-enabled-at-startup share one code path.
type Writer struct {
	path    string
	policy  SyncPolicy
	file    *os.File
	enabled bool

	lastFsyncMs int64
}

// New binds a Writer to path and policy without opening anything.
func New(path string, policy SyncPolicy) *Writer {
	return &Writer{path: path, policy: policy}
}

func (w *Writer) Enabled() bool    { return w.enabled }
func (w *Writer) Path() string     { return w.path }
func (w *Writer) Policy() SyncPolicy { return w.policy }

func (w *Writer) SetPolicy(p SyncPolicy) { w.policy = p }

// Enable opens the configured path append-only. If the writer is
// already enabled this is a no-op. Callers at startup should treat a
// non-nil error as non-fatal: disable AOF and log a warning, per
// spec §4.3's failure semantics.
func (w *Writer) Enable() error {
	if w.enabled {
		return nil
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	w.file = f
	w.enabled = true
	return nil
}

// Disable closes the writer's file handle without deleting the file,
// so a later AOF ENABLE reopens and appends to the same log.
func (w *Writer) Disable() {
	if !w.enabled {
		return
	}
	w.file.Close()
	w.file = nil
	w.enabled = false
}

// Append writes frame, the re-serialized RESP array for a command that
// just mutated the keyspace. A write failure after a successful open is
// fatal per spec §4.3; the caller decides what "fatal" means (terminate
// or forcibly disable), Append only reports the error.
func (w *Writer) Append(frame []byte) error {
	if !w.enabled {
		return nil
	}
	_, err := w.file.Write(frame)
	return err
}

// MaintainFsync flushes to disk if the configured policy requires it
// and at least one second has elapsed since the last flush. Called
// inline from the event loop's periodic maintenance step; there is no
// background ticker.
func (w *Writer) MaintainFsync(nowMs int64) error {
	if !w.enabled || w.policy != SyncEverySec {
		return nil
	}
	if nowMs-w.lastFsyncMs < 1000 {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	w.lastFsyncMs = nowMs
	return nil
}

// Close flushes and closes the file handle, if open.
func (w *Writer) Close() error {
	if !w.enabled {
		return nil
	}
	err := w.file.Sync()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.enabled = false
	w.file = nil
	return err
}
