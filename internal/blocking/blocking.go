// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

// Package blocking implements the blocking-operation counter the
// timeout supervisor notifies when a script enters and leaves timed-out
// mode, so that watchdogs elsewhere in the server that would otherwise
// flag a stalled event loop know a long-running-but-legitimate
// operation is in progress.
package blocking

import "sync/atomic"

// Counter tracks the number of in-flight long-running operations.
type Counter struct {
	n atomic.Int64
}

// NewCounter creates a zeroed Counter.
func NewCounter() *Counter {
	return &Counter{}
}

// Started records that one more long-running operation began.
func (c *Counter) Started() {
	c.n.Add(1)
}

// Ended records that one long-running operation finished.
func (c *Counter) Ended() {
	c.n.Add(-1)
}

// Count returns the number of currently in-flight operations.
func (c *Counter) Count() int64 {
	return c.n.Load()
}
