// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

// Package persistence implements the write-blocked watchdog the
// command gateway's write-allowed check consults: is there a disk
// error serious enough that writes must be refused until resolved?
package persistence

import "sync/atomic"

// BlockReason enumerates why writes are currently refused.
type BlockReason int32

const (
	// None means writes may proceed.
	None BlockReason = iota
	// SnapshotFailed means the last background snapshot failed and the
	// server is configured to stop accepting writes until resolved.
	SnapshotFailed
	// LogFailed means the append-only log could not be written.
	LogFailed
)

func (r BlockReason) String() string {
	switch r {
	case SnapshotFailed:
		return "SNAPSHOT_FAILED"
	case LogFailed:
		return "LOG_FAILED"
	default:
		return "NONE"
	}
}

// Watchdog tracks the current write-blocked reason. It is safe for
// concurrent use since a background snapshotter or AOF writer goroutine
// may update it while the event-loop thread reads it.
type Watchdog struct {
	reason atomic.Int32
}

// NewWatchdog creates a Watchdog with no blocking condition.
func NewWatchdog() *Watchdog {
	return &Watchdog{}
}

// WriteBlockedReason reports the current blocking condition, if any.
func (w *Watchdog) WriteBlockedReason() BlockReason {
	return BlockReason(w.reason.Load())
}

// SetSnapshotFailed records a background snapshot failure.
func (w *Watchdog) SetSnapshotFailed() {
	w.reason.Store(int32(SnapshotFailed))
}

// SetLogFailed records an append-only log write failure.
func (w *Watchdog) SetLogFailed() {
	w.reason.Store(int32(LogFailed))
}

// Clear records that writes may resume.
func (w *Watchdog) Clear() {
	w.reason.Store(int32(None))
}
