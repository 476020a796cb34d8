// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package core

import "github.com/quillkv/quill/internal/replication"

// SetProtocolVersion implements the script-settable redis.setresp
// equivalent. v must be 2 or 3.
func (s *Server) SetProtocolVersion(rc *RunContext, v int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runCtx != rc {
		return ErrNotRunning
	}
	if v != 2 && v != 3 {
		return ErrBadProtocolVersion
	}
	rc.Pseudo.Proto = v
	return nil
}

// SetReplication implements the script-settable redis.set_repl
// equivalent. mask must be a subset of {DestAOF, DestReplicas}.
func (s *Server) SetReplication(rc *RunContext, mask replication.Dest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runCtx != rc {
		return ErrNotRunning
	}
	if mask&^(replication.DestAOF|replication.DestReplicas) != 0 {
		return ErrBadReplicationMask
	}
	rc.replFlags = mask
	return nil
}
