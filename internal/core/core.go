// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

// Package core implements the embedded scripting execution core: the
// glue between a scripting engine and the command dispatcher. It owns
// the process-wide "currently running script" slot, validates every
// script-issued command through a strict gateway pipeline, detects
// runaway scripts, and brackets script-generated writes so they appear
// atomic to the append-only log and to replicas. It is the central
// module of this repository; every other internal package exists to
// give it something real to consult.
package core

import (
	"sync"
	"time"

	"github.com/quillkv/quill/internal/auth"
	"github.com/quillkv/quill/internal/blocking"
	"github.com/quillkv/quill/internal/client"
	"github.com/quillkv/quill/internal/cluster"
	"github.com/quillkv/quill/internal/command"
	"github.com/quillkv/quill/internal/eventloop"
	"github.com/quillkv/quill/internal/oom"
	"github.com/quillkv/quill/internal/persistence"
	"github.com/quillkv/quill/internal/replication"
	"github.com/quillkv/quill/internal/store"
)

// Flag is a bitmask of independent run-context state bits.
type Flag uint32

const (
	// FlagEvalMode distinguishes ad-hoc scripts from named stored
	// functions; it decides which kill command variant applies.
	FlagEvalMode Flag = 1 << iota
	// FlagWriteDirty is set the first time a write command dispatches.
	// It gates kill eligibility and bracket emission.
	FlagWriteDirty
	// FlagMultiEmitted is set once the atomicity open-bracket has been
	// propagated; a matching close-bracket is required at reset.
	FlagMultiEmitted
	// FlagTimedout marks a script that exceeded the configured time
	// threshold and is running in reentrant, event-pumped mode.
	FlagTimedout
	// FlagKilled marks a script an administrator asked to terminate.
	// Observed cooperatively at the next interrupt tick.
	FlagKilled
	// FlagReadOnly marks a script that declared itself read-only.
	FlagReadOnly
)

func (rc *RunContext) has(f Flag) bool { return rc.flags&f != 0 }
func (rc *RunContext) set(f Flag)      { rc.flags |= f }
func (rc *RunContext) clear(f Flag)    { rc.flags &^= f }

// SetReadOnly declares rc's script read-only: the write-allowed check
// in the command gateway refuses every write command for the rest of
// this run. It is exported so the scripting engine can honor an
// EVAL_RO/FCALL_RO invocation before the first CallCommand.
func (rc *RunContext) SetReadOnly() { rc.set(FlagReadOnly) }

// IsWriteDirty reports whether this run has dispatched at least one
// write command. Exported so callers driving a run (the scripting
// engine's timeout loop, admin tooling) can explain why a kill was
// refused without reaching into package-private state.
func (rc *RunContext) IsWriteDirty() bool { return rc.has(FlagWriteDirty) }

// RunContext represents exactly one in-flight script invocation. A
// caller obtains one (typically by embedding it in whatever wraps the
// scripting engine) and passes the same pointer to Prepare, every
// CallCommand/Interrupt call for the duration of the run, and finally
// Reset.
type RunContext struct {
	// Pseudo is the internal client through which the script's
	// commands enter the dispatcher.
	Pseudo *client.Client
	// Caller is the external client that issued the script-invoking
	// command.
	Caller *client.Client
	// FuncName is an opaque label used for logging.
	FuncName string

	flags     Flag
	replFlags replication.Dest

	startTime    time.Time
	snapshotTime time.Time

	lastCommand *command.Command
}

// Verdict is the result of an Interrupt tick.
type Verdict int

const (
	// Continue means the script should keep running.
	Continue Verdict = iota
	// Kill means the engine should unwind script execution now.
	Kill
)

// Server bundles the collaborators the gateway and supervisor consult,
// and owns the process-wide "currently running script" slot.
type Server struct {
	mu     sync.Mutex
	runCtx *RunContext

	Store      *store.Store
	Registry   *command.Registry
	ACL        *auth.ACL
	Cluster    *cluster.Resolver
	Persist    *persistence.Watchdog
	OOM        *oom.Latch
	Blocking   *blocking.Counter
	Repl       *replication.Frontend
	Loop       *eventloop.Loop

	// ScriptTimeoutMS is the elapsed-time threshold the timeout
	// supervisor compares against before switching a script into
	// timed-out mode.
	ScriptTimeoutMS int64
	// IsReplica and ReplicaReadOnly together gate the write-allowed
	// check's replica rule.
	IsReplica       bool
	ReplicaReadOnly bool
	// MasterClient is the connection to this server's upstream master,
	// if any. Writes it issues bypass the replica-read-only refusal
	// and it can never be the victim of kill.
	MasterClient *client.Client
	// ScriptDenyDisabled administratively disables the NOSCRIPT check,
	// mirroring an escape hatch real servers expose for debugging.
	ScriptDenyDisabled bool

	// OnMasterRequeue is invoked by the timed-out exit sequence when
	// this server is a replica coming out of timed-out mode, so the
	// event loop resumes processing replicated writes from the
	// upstream master. Nil is a valid no-op default.
	OnMasterRequeue func(*client.Client)

	filters []func([]string) []string

	inScript bool
}

// NewServer wires a Server from its collaborators. Any of the pointer
// fields may be filled in afterward on the returned value before first
// use; NewServer only applies defaults that make an empty Server safe
// to Prepare against.
func NewServer(st *store.Store, reg *command.Registry) *Server {
	return &Server{
		Store:           st,
		Registry:        reg,
		ACL:             auth.NewACL(),
		Cluster:         cluster.NewResolver(),
		Persist:         persistence.NewWatchdog(),
		OOM:             oom.NewLatch(),
		Blocking:        blocking.NewCounter(),
		Repl:            replication.NewFrontend(),
		Loop:            eventloop.NewLoop(),
		ScriptTimeoutMS: 5000,
		ReplicaReadOnly: true,
	}
}

// RegisterFilter adds a command-filter hook; the gateway's filter-hooks
// step invokes every registered filter in registration order, each
// receiving the previous filter's output.
func (s *Server) RegisterFilter(fn func([]string) []string) {
	s.filters = append(s.filters, fn)
}

// InScript reports the process-wide "a script is running" indicator
// unrelated subsystems consult. It is equivalent to IsRunning but named
// separately to mirror the two call sites the design notes describe.
func (s *Server) InScript() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inScript
}
