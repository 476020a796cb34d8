// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

// Package cluster implements the slot-to-node resolver the command
// gateway's locality check consults: does this node own every key a
// script-issued command touches?
package cluster

// SlotCount is the number of hash slots the keyspace is partitioned
// into, following the convention of 16384 slots across nodes.
const SlotCount = 16384

// Reason categorizes why locate refused a command.
type Reason int

const (
	// Local means the command's keys all map to this node; dispatch
	// may proceed.
	Local Reason = iota
	// DownReadOnlyWrite means the cluster is down, the cluster state
	// is configured read-only, and a write was attempted.
	DownReadOnlyWrite
	// Down means the cluster is down and no safe answer can be given.
	Down
	// NonLocalKey means the keys map to a slot this node does not own.
	NonLocalKey
)

// HashSlot computes the slot a key maps to using CRC16-CCITT (polynomial
// 0x1021), the standard cluster key-hashing algorithm. Keys wrapped in
// "{hashtag}" braces hash only on the bracketed substring, so related
// keys can be pinned to the same slot.
func HashSlot(key string) int {
	tag := hashtag(key)
	return int(crc16(tag)) % SlotCount
}

func hashtag(key string) string {
	start := -1
	for i := 0; i < len(key); i++ {
		if key[i] == '{' {
			start = i
			break
		}
	}
	if start == -1 {
		return key
	}
	end := -1
	for i := start + 1; i < len(key); i++ {
		if key[i] == '}' {
			end = i
			break
		}
	}
	if end == -1 || end == start+1 {
		return key
	}
	return key[start+1 : end]
}

var crc16Table [256]uint16

func init() {
	const poly = 0x1021
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for b := 0; b < 8; b++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		crc16Table[i] = crc
	}
}

func crc16(s string) uint16 {
	var crc uint16
	for i := 0; i < len(s); i++ {
		crc = (crc << 8) ^ crc16Table[byte(crc>>8)^s[i]]
	}
	return crc
}

// Node identifies a cluster member owning a contiguous set of slots.
type Node struct {
	ID         string
	SlotStart  int
	SlotEnd    int
	IsThisNode bool
}

func (n Node) owns(slot int) bool {
	return slot >= n.SlotStart && slot <= n.SlotEnd
}

// Resolver answers slot-ownership questions for the local node.
type Resolver struct {
	Enabled       bool
	Down          bool
	ReadOnlyState bool
	Nodes         []Node
}

// NewResolver creates a disabled resolver; clustering is off by default
// and the locality check is skipped entirely in that mode (see the
// command gateway's step 10).
func NewResolver() *Resolver {
	return &Resolver{}
}

// Locate reports whether keys all map to slots this node owns. write
// indicates whether the command being checked is a write, which
// matters for the down-and-readonly distinction.
func (r *Resolver) Locate(keys []string, write bool) (ok bool, reason Reason) {
	if !r.Enabled {
		return true, Local
	}
	if r.Down {
		if write && r.ReadOnlyState {
			return false, DownReadOnlyWrite
		}
		return false, Down
	}
	for _, k := range keys {
		slot := HashSlot(k)
		if !r.ownsSlot(slot) {
			return false, NonLocalKey
		}
	}
	return true, Local
}

func (r *Resolver) ownsSlot(slot int) bool {
	for _, n := range r.Nodes {
		if n.IsThisNode && n.owns(slot) {
			return true
		}
	}
	return false
}
