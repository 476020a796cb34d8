// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

// Package oom implements the out-of-memory latch the command gateway's
// OOM check consults. The latch is sampled once at prepare and held
// fixed for the duration of a script's run: the surrounding server
// refreshes it fresh at each prepare rather than sticking at historical
// pressure.
package oom

import "sync/atomic"

// Latch tracks whether memory pressure exceeded the configured cap the
// last time Refresh ran.
type Latch struct {
	maxMemory atomic.Int64 // 0 means no cap configured
	latched   atomic.Bool
}

// NewLatch creates a Latch with no memory cap configured.
func NewLatch() *Latch {
	return &Latch{}
}

// SetMaxMemory configures the memory cap in bytes; 0 disables the cap
// entirely, which also disables the OOM check regardless of latch
// state.
func (l *Latch) SetMaxMemory(bytes int64) {
	l.maxMemory.Store(bytes)
}

// Configured reports whether a non-zero memory cap is set.
func (l *Latch) Configured() bool {
	return l.maxMemory.Load() > 0
}

// Refresh samples current usage against the configured cap and updates
// the latch. Called once per core.Prepare.
func (l *Latch) Refresh(currentUsage int64) {
	max := l.maxMemory.Load()
	l.latched.Store(max > 0 && currentUsage >= max)
}

// Latched reports the latch's state as of the last Refresh.
func (l *Latch) Latched() bool {
	return l.latched.Load()
}
