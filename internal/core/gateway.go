// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package core

import (
	"github.com/quillkv/quill/internal/client"
	"github.com/quillkv/quill/internal/cluster"
	"github.com/quillkv/quill/internal/command"
	"github.com/quillkv/quill/internal/persistence"
	"github.com/quillkv/quill/internal/util"
)

// CallCommand is the command gateway's entry point. It runs argv
// through the full validator pipeline and, if every step passes,
// dispatches the command. rc must be the active run context.
func (s *Server) CallCommand(rc *RunContext, argv []string) (command.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runCtx != rc {
		return command.Reply{}, ErrNotRunning
	}
	if len(argv) == 0 {
		return command.Reply{}, ErrUnknownCommand
	}

	// 1. Argument binding.
	rc.Pseudo.Argv = argv
	rc.Pseudo.User = rc.Caller.User

	// 2. Filter hooks.
	for _, f := range s.filters {
		argv = f(argv)
	}
	rc.Pseudo.Argv = argv

	// 3. Lookup.
	cmd, ok := s.Registry.Lookup(argv[0])
	if !ok {
		return command.Reply{}, ErrUnknownCommand
	}
	rc.Pseudo.CurrentCmd = cmd.Name
	rc.lastCommand = cmd

	// 4. Arity check.
	if !cmd.ArityOK(len(argv)) {
		return command.Reply{}, ErrWrongArity
	}

	// 5. Script-forbidden check.
	if cmd.Flags&command.NoScript != 0 && !s.ScriptDenyDisabled {
		return command.Reply{}, ErrNoScript
	}

	// 6. Authorization.
	keys := cmd.Keys.Keys(argv)
	if err := s.ACL.CheckAllPermissions(rc.Pseudo.User, cmd, keys); err != nil {
		util.Debug("script command denied", "function", rc.FuncName, "command", cmd.Name, "user", rc.Pseudo.User, "reason", err)
		return command.Reply{}, err
	}

	isWrite := cmd.Flags&command.Write != 0

	// 7. Write-allowed check.
	if isWrite {
		if rc.has(FlagReadOnly) {
			return command.Reply{}, ErrReadOnlyScript
		}
		if s.IsReplica && s.ReplicaReadOnly && !rc.Caller.IsAOFLoader && !rc.Caller.IsMaster {
			return command.Reply{}, ErrReplicaReadOnly
		}
		switch s.Persist.WriteBlockedReason() {
		case persistence.SnapshotFailed:
			return command.Reply{}, ErrSnapshotFailed
		case persistence.LogFailed:
			return command.Reply{}, ErrLogFailed
		}
	}

	// 8. OOM check.
	if cmd.Flags&command.DenyOOM != 0 {
		if s.OOM.Configured() && !rc.Caller.IsAOFLoader && !s.IsReplica && !rc.has(FlagWriteDirty) && s.OOM.Latched() {
			return command.Reply{}, ErrOOM
		}
	}

	// 9. Write bookkeeping.
	if isWrite {
		rc.set(FlagWriteDirty)
	}

	// 10. Cluster locality check.
	if s.Cluster.Enabled && !rc.Caller.IsAOFLoader && !rc.Caller.IsMaster {
		if rc.Caller.HasFlag(client.FlagReadOnly) {
			rc.Pseudo.SetFlag(client.FlagReadOnly)
		} else {
			rc.Pseudo.ClearFlag(client.FlagReadOnly)
		}
		if rc.Caller.HasFlag(client.FlagAsking) {
			rc.Pseudo.SetFlag(client.FlagAsking)
		} else {
			rc.Pseudo.ClearFlag(client.FlagAsking)
		}

		if ok, reason := s.Cluster.Locate(keys, isWrite); !ok {
			switch reason {
			case cluster.DownReadOnlyWrite:
				return command.Reply{}, ErrClusterDownReadOnly
			case cluster.Down:
				return command.Reply{}, ErrClusterDown
			default:
				return command.Reply{}, ErrNonLocalKey
			}
		}
	}

	// 11. Atomicity bracket.
	s.maybeEmitOpenBracket(rc)

	// 12. Dispatch.
	ctx := &command.Context{DB: rc.Pseudo.DB}
	reply, dispatchErr := cmd.Handler(ctx, argv)

	if isWrite {
		if rc.Pseudo.ConsumeSuppressNextPropagation() {
			// the bracket itself is the propagation for this command
		} else {
			s.Repl.Propagate(rc.Caller.DB, argv, rc.replFlags)
		}
	}

	// 13. Post-assertion.
	if rc.Pseudo.Blocked() {
		rc.Pseudo.SetBlocked(false)
		return command.Reply{}, ErrBlockedAfterDispatch
	}

	return reply, dispatchErr
}

// maybeEmitOpenBracket implements the replication wrapper's
// emit-open-bracket rule: the begin marker is propagated once, on the
// first write, unless the caller is already in a transaction or both
// replication destinations are disabled.
func (s *Server) maybeEmitOpenBracket(rc *RunContext) {
	if rc.has(FlagMultiEmitted) {
		return
	}
	if rc.Caller.HasFlag(client.FlagMulti) {
		return
	}
	if !rc.has(FlagWriteDirty) {
		return
	}
	if rc.replFlags == 0 {
		return
	}

	s.Repl.PropagateBeginTx(rc.Caller.DB)
	rc.set(FlagMultiEmitted)
	rc.Pseudo.SetFlag(client.FlagMulti)
}
