// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

// Package command declares the command table contract the scripting
// execution core's gateway validates against: arity, flags,
// authorization category, and the key positions a command touches.
// It is adapted from aplane's internal/command package, which held the
// same kind of metadata for REPL commands; this version trades aliases
// and CLI help text for the arity/flag/key-spec shape the gateway in
// internal/core needs.
package command

// Flag is a bitmask of independent command properties the gateway
// consults while validating a script-issued call.
type Flag uint32

const (
	// Write marks a command that mutates the keyspace. Triggers the
	// write-allowed check, write-dirty bookkeeping, and atomicity
	// bracket emission.
	Write Flag = 1 << iota
	// NoScript marks a command that may never be issued by a script.
	NoScript
	// DenyOOM marks a command that may grow memory usage and is
	// therefore refused under the first-write-not-yet-happened OOM
	// rule.
	DenyOOM
	// Admin marks an administrative command. The command gateway does
	// not consult this flag; only NoScript keeps a command out of
	// scripts.
	Admin
	// Loading marks a command allowed to run while the append-only log
	// is being replayed at startup.
	Loading
)

// Category classifies a command for audit logging and ACL rules.
type Category string

const (
	CategoryRead      Category = "read"
	CategoryWrite     Category = "write"
	CategoryAdmin     Category = "admin"
	CategoryScripting Category = "scripting"
	CategoryConn      Category = "connection"
)

// Reply is the value a Handler produces.
type Reply struct {
	Value any
}

// OK is the canonical "+OK" reply most write commands return.
var OK = Reply{Value: "OK"}

// Context bundles what a Handler needs to do its work: the database
// selected on the client it is executing on behalf of (the external
// caller for direct dispatch, or the pseudo-client for script-issued
// commands).
type Context struct {
	DB int
}

// Handler executes a single command invocation.
type Handler func(ctx *Context, argv []string) (Reply, error)

// KeySpec describes which argv positions are keys, using the classic
// firstkey/lastkey/keystep convention: keys start at FirstKey, end at
// LastKey (negative counts back from the end of argv), advancing by
// Step. A FirstKey of 0 means the command touches no keys.
type KeySpec struct {
	FirstKey int
	LastKey  int
	Step     int
}

// Keys resolves the concrete key arguments out of argv according to
// spec. It returns nil for a command with no key spec.
func (k KeySpec) Keys(argv []string) []string {
	if k.FirstKey <= 0 || k.Step <= 0 {
		return nil
	}
	last := k.LastKey
	if last < 0 {
		last = len(argv) + last
	}
	var keys []string
	for i := k.FirstKey; i <= last && i < len(argv); i += k.Step {
		keys = append(keys, argv[i])
	}
	return keys
}

// Command is one entry in the command table.
type Command struct {
	Name     string
	Arity    int // positive: exact argc; negative: minimum argc (|Arity|)
	Flags    Flag
	Category Category
	Keys     KeySpec
	Handler  Handler
}

// ArityOK reports whether argc satisfies the command's declared arity,
// per spec.md's "positive means exact, negative means at least |arity|"
// rule. argc includes the command name itself.
func (c *Command) ArityOK(argc int) bool {
	if c.Arity >= 0 {
		return argc == c.Arity
	}
	return argc >= -c.Arity
}
