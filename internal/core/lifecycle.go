// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package core

import (
	"time"

	"github.com/quillkv/quill/internal/client"
	"github.com/quillkv/quill/internal/replication"
)

// Prepare installs rc as the active run context on behalf of a script
// about to execute. Pre: no script currently running.
func (s *Server) Prepare(rc *RunContext, pseudo, caller *client.Client, funcName string, isEval bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runCtx != nil {
		return ErrAlreadyRunning
	}

	pseudo.DB = caller.DB
	pseudo.Proto = client.DefaultProtocol
	if caller.HasFlag(client.FlagMulti) {
		pseudo.SetFlag(client.FlagMulti)
	} else {
		pseudo.ClearFlag(client.FlagMulti)
	}

	rc.Pseudo = pseudo
	rc.Caller = caller
	rc.FuncName = funcName
	rc.flags = 0
	if isEval {
		rc.flags |= FlagEvalMode
	}
	rc.replFlags = replication.Both
	rc.startTime = time.Now()
	rc.snapshotTime = time.Now()
	rc.lastCommand = nil

	s.inScript = true
	s.runCtx = rc

	s.OOM.Refresh(s.Store.ApproxMemoryUsage())

	return nil
}

// Reset tears rc down. Pre: rc is the active singleton.
func (s *Server) Reset(rc *RunContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runCtx != rc {
		return ErrNotRunning
	}

	rc.Pseudo.ClearFlag(client.FlagMulti)
	s.inScript = false

	if rc.has(FlagTimedout) {
		s.timedOutExit(rc)
	}

	rc.Caller.RequestSuppressNextPropagation()
	if rc.has(FlagMultiEmitted) {
		s.Repl.PropagateCommitTx(rc.Caller.DB)
	}

	s.runCtx = nil
	return nil
}

// IsRunning reports whether a script is currently active.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCtx != nil
}

// CurrentFunctionName returns the active run context's function name.
// Pre: running.
func (s *Server) CurrentFunctionName() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx == nil {
		return "", ErrNotRunning
	}
	return s.runCtx.FuncName, nil
}

// IsEval reports whether the active run context is an ad-hoc eval
// script rather than a stored function. Pre: running.
func (s *Server) IsEval() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx == nil {
		return false, ErrNotRunning
	}
	return s.runCtx.has(FlagEvalMode), nil
}

// SnapshotTime returns the wall-clock time captured at prepare, so
// repeated reads during one invocation observe a consistent "now".
// Pre: running (see the open-question decision in this repository's
// design notes on the source's inverted assertion).
func (s *Server) SnapshotTime() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx == nil {
		return time.Time{}, ErrNotRunning
	}
	return s.runCtx.snapshotTime, nil
}

// RunDurationMS returns milliseconds elapsed since prepare. Pre: running.
func (s *Server) RunDurationMS() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx == nil {
		return 0, ErrNotRunning
	}
	return time.Since(s.runCtx.startTime).Milliseconds(), nil
}

// IsTimedOut reports whether the active run context is in timed-out
// mode. False (rather than an error) when no script is running, since
// this is queried by watchdogs that don't know or care whether a
// script is active.
func (s *Server) IsTimedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCtx != nil && s.runCtx.has(FlagTimedout)
}
