// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

// Package client defines the Client type used both for externally
// connected callers and for the synthetic pseudo-client through which a
// running script's commands enter the dispatcher. The two roles share a
// type deliberately: the command gateway expects the same capability
// bundle (selected database, protocol version, transaction/cluster
// flags, current command) regardless of which role is asking.
package client

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultProtocol is the RESP protocol version a fresh pseudo-client is
// reset to at prepare time.
const DefaultProtocol = 2

// Flag holds the independent per-client state bits the gateway consults.
type Flag uint32

const (
	// FlagMulti marks a client (real or pseudo) as inside a
	// transaction. Nested dispatch uses this to avoid re-opening the
	// atomicity bracket.
	FlagMulti Flag = 1 << iota
	// FlagReadOnly marks a cluster client that only wants to address
	// replica-served reads.
	FlagReadOnly
	// FlagAsking marks a client that has issued ASKING and may address
	// a single command to a slot mid-migration.
	FlagAsking
)

// Client represents either an external caller or the internal
// pseudo-client a script issues its commands through.
type Client struct {
	ID    uuid.UUID
	Name  string
	DB    int
	Proto int
	User  string

	// IsMaster is true when this client is the connection to this
	// server's upstream master (replicated writes arrive on it). Such a
	// client can never be the victim of SCRIPT KILL / FUNCTION KILL,
	// and its writes bypass the replica-read-only check.
	IsMaster bool
	// IsAOFLoader is true only for the synthetic client used while
	// replaying the append-only log at startup.
	IsAOFLoader bool

	// Argv/CurrentCmd are populated by the command gateway's argument
	// binding step; they exist mainly so post-dispatch assertions and
	// logging can inspect what the client was last asked to run.
	Argv       []string
	CurrentCmd string

	flags      atomic.Uint32
	protectRef atomic.Int32
	blocked    atomic.Bool

	// suppressNextPropagation is consulted by the command dispatcher
	// (outside this package) to skip the automatic propagation of the
	// command currently being processed on this client — used by the
	// replication wrapper so the script-invoking command itself is
	// replaced by the atomicity bracket rather than propagated twice.
	suppressNextPropagation atomic.Bool
}

// New creates a client selected onto db with the default protocol
// version.
func New(db int) *Client {
	return &Client{
		ID:    uuid.New(),
		DB:    db,
		Proto: DefaultProtocol,
	}
}

// HasFlag reports whether f is currently set.
func (c *Client) HasFlag(f Flag) bool {
	return Flag(c.flags.Load())&f != 0
}

// SetFlag sets f.
func (c *Client) SetFlag(f Flag) {
	for {
		old := c.flags.Load()
		next := old | uint32(f)
		if c.flags.CompareAndSwap(old, next) {
			return
		}
	}
}

// ClearFlag clears f.
func (c *Client) ClearFlag(f Flag) {
	for {
		old := c.flags.Load()
		next := old &^ uint32(f)
		if c.flags.CompareAndSwap(old, next) {
			return
		}
	}
}

// Protect pins the client so it will not be freed while a timed-out
// script still holds a reference to it, even if its underlying
// connection is closed in the meantime. Protect/Unprotect are
// reference-counted: nested protection from more than one caller is
// safe.
func (c *Client) Protect() {
	c.protectRef.Add(1)
}

// Unprotect releases one protection reference.
func (c *Client) Unprotect() {
	c.protectRef.Add(-1)
}

// IsProtected reports whether the client currently has at least one
// outstanding protection reference.
func (c *Client) IsProtected() bool {
	return c.protectRef.Load() > 0
}

// SetBlocked records whether the client is parked in a blocking wait.
// The command gateway asserts this is never true for the pseudo-client
// after dispatch: scripts do not support blocking commands.
func (c *Client) SetBlocked(v bool) {
	c.blocked.Store(v)
}

// Blocked reports the last value passed to SetBlocked.
func (c *Client) Blocked() bool {
	return c.blocked.Load()
}

// RequestSuppressNextPropagation asks the dispatcher to skip automatic
// propagation of the command currently executing on this client.
func (c *Client) RequestSuppressNextPropagation() {
	c.suppressNextPropagation.Store(true)
}

// ConsumeSuppressNextPropagation reports and clears the suppression
// request installed by RequestSuppressNextPropagation.
func (c *Client) ConsumeSuppressNextPropagation() bool {
	return c.suppressNextPropagation.Swap(false)
}
