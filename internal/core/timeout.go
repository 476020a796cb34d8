// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package core

import (
	"time"

	"github.com/quillkv/quill/internal/client"
	"github.com/quillkv/quill/internal/util"
)

// Interrupt is the timeout supervisor's public operation. The engine
// calls it at a bounded cadence from within script execution.
//
// The Loop.Pump call below must happen with s.mu released: a pumped
// job (an admin command arriving over the out-of-band admin socket,
// say) may itself call back into Kill or another locking Server
// method, and s.mu is not reentrant. Everything that reads or mutates
// rc's flags happens in two short locked sections bracketing the pump,
// mirroring how the real event loop's single thread would interleave
// "check timeout" / "service pending events" / "check kill" without
// needing a lock at all.
func (s *Server) Interrupt(rc *RunContext) Verdict {
	s.mu.Lock()
	if rc.has(FlagTimedout) {
		s.mu.Unlock()
	} else {
		elapsed := time.Since(rc.startTime).Milliseconds()
		if elapsed < s.ScriptTimeoutMS {
			s.mu.Unlock()
			return Continue
		}
		util.Logger.Warn("slow script detected", "function", rc.FuncName, "elapsed_ms", elapsed)
		s.timedOutEnter(rc)
		s.mu.Unlock()
	}

	s.Loop.Pump()

	s.mu.Lock()
	killed := rc.has(FlagKilled)
	s.mu.Unlock()
	if killed {
		return Kill
	}
	return Continue
}

// timedOutEnter transitions rc into timed-out mode. Pre: FlagTimedout
// currently clear (checked by Interrupt, the only caller).
func (s *Server) timedOutEnter(rc *RunContext) {
	rc.set(FlagTimedout)
	s.Blocking.Started()
	rc.Caller.Protect()
}

// timedOutExit reverses timedOutEnter. Called from Reset while holding
// s.mu. Pre: FlagTimedout set.
func (s *Server) timedOutExit(rc *RunContext) {
	rc.clear(FlagTimedout)
	s.Blocking.Ended()
	if s.IsReplica && s.MasterClient != nil && s.OnMasterRequeue != nil {
		s.OnMasterRequeue(s.MasterClient)
	}
	rc.Caller.Unprotect()
}

// Kill implements the administrative SCRIPT KILL / FUNCTION KILL
// operation. isEval selects which command variant the admin issued;
// it must match the running script's own mode.
func (s *Server) Kill(adminClient *client.Client, isEval bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc := s.runCtx
	if rc == nil {
		return ErrNotBusy
	}
	if rc.Caller.IsMaster {
		return ErrUnkillable
	}
	if rc.has(FlagWriteDirty) {
		return ErrUnkillable
	}
	if isEval != rc.has(FlagEvalMode) {
		return ErrWrongKillMode
	}

	rc.set(FlagKilled)
	return nil
}
