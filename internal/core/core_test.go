// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package core

import (
	"errors"
	"testing"
	"time"

	"github.com/quillkv/quill/internal/auth"
	"github.com/quillkv/quill/internal/client"
	"github.com/quillkv/quill/internal/command"
	"github.com/quillkv/quill/internal/replication"
	"github.com/quillkv/quill/internal/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	st := store.New(1)
	reg := command.NewRegistry()

	must := func(err error) {
		if err != nil {
			t.Fatalf("registering test command: %v", err)
		}
	}

	must(reg.Register(&command.Command{
		Name:  "GET",
		Arity: 2,
		Keys:  command.KeySpec{FirstKey: 1, LastKey: 1, Step: 1},
		Handler: func(ctx *command.Context, argv []string) (command.Reply, error) {
			v, ok := st.Get(ctx.DB, argv[1])
			if !ok {
				return command.Reply{Value: nil}, nil
			}
			return command.Reply{Value: v}, nil
		},
	}))
	must(reg.Register(&command.Command{
		Name:  "SET",
		Arity: 3,
		Flags: command.Write | command.DenyOOM,
		Keys:  command.KeySpec{FirstKey: 1, LastKey: 1, Step: 1},
		Handler: func(ctx *command.Context, argv []string) (command.Reply, error) {
			st.Set(ctx.DB, argv[1], argv[2])
			return command.OK, nil
		},
	}))
	must(reg.Register(&command.Command{
		Name:  "INCR",
		Arity: 2,
		Flags: command.Write | command.DenyOOM,
		Keys:  command.KeySpec{FirstKey: 1, LastKey: 1, Step: 1},
		Handler: func(ctx *command.Context, argv []string) (command.Reply, error) {
			v, err := st.Incr(ctx.DB, argv[1], 1)
			if err != nil {
				return command.Reply{}, err
			}
			return command.Reply{Value: v}, nil
		},
	}))

	s := NewServer(st, reg)
	s.ACL.AddUser(&auth.User{Name: "default", AllCommands: true, AllKeys: true})
	return s
}

func testCaller(s *Server) *client.Client {
	c := client.New(0)
	c.User = "default"
	return c
}

// Scenario 1: read-only script succeeds with no bracket markers.
func TestCore_ReadOnlyScriptSucceeds(t *testing.T) {
	s := testServer(t)
	caller := testCaller(s)
	rc := &RunContext{}

	if err := s.Prepare(rc, client.New(0), caller, "readonly.lua", true); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if _, err := s.CallCommand(rc, []string{"GET", "x"}); err != nil {
		t.Fatalf("GET x error = %v", err)
	}
	if _, err := s.CallCommand(rc, []string{"GET", "y"}); err != nil {
		t.Fatalf("GET y error = %v", err)
	}

	if err := s.Reset(rc); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if rc.has(FlagWriteDirty) {
		t.Error("WRITE_DIRTY should never be set for a read-only script")
	}
	if len(s.Repl.Events()) != 0 {
		t.Errorf("Events() = %v, want no bracket markers", s.Repl.Events())
	}
}

// Scenario 2: write script on primary brackets its writes exactly once.
func TestCore_WriteScriptOnPrimary(t *testing.T) {
	s := testServer(t)
	caller := testCaller(s)
	rc := &RunContext{}

	if err := s.Prepare(rc, client.New(0), caller, "writer.lua", true); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if _, err := s.CallCommand(rc, []string{"SET", "a", "1"}); err != nil {
		t.Fatalf("SET error = %v", err)
	}
	if _, err := s.CallCommand(rc, []string{"INCR", "b"}); err != nil {
		t.Fatalf("INCR error = %v", err)
	}
	if err := s.Reset(rc); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	events := s.Repl.Events()
	if len(events) != 4 {
		t.Fatalf("Events() len = %d, want 4 (begin, SET, INCR, commit)", len(events))
	}
	if events[0].Kind != replication.EventBeginTx {
		t.Errorf("events[0].Kind = %v, want EventBeginTx", events[0].Kind)
	}
	if events[1].Kind != replication.EventCommand || events[1].Command[0] != "SET" {
		t.Errorf("events[1] = %+v, want SET command", events[1])
	}
	if events[2].Kind != replication.EventCommand || events[2].Command[0] != "INCR" {
		t.Errorf("events[2] = %+v, want INCR command", events[2])
	}
	if events[3].Kind != replication.EventCommitTx {
		t.Errorf("events[3].Kind = %v, want EventCommitTx", events[3].Kind)
	}
}

// Scenario 3: timeout then kill.
func TestCore_TimeoutThenKill(t *testing.T) {
	s := testServer(t)
	s.ScriptTimeoutMS = 0 // force immediate timeout for a deterministic test
	caller := testCaller(s)
	rc := &RunContext{}

	if err := s.Prepare(rc, client.New(0), caller, "slow.lua", true); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	time.Sleep(time.Millisecond)
	if v := s.Interrupt(rc); v != Continue {
		t.Fatalf("first post-threshold Interrupt() = %v, want Continue", v)
	}
	if !rc.has(FlagTimedout) {
		t.Error("Interrupt() should have entered timed-out mode")
	}

	admin := client.New(0)
	if err := s.Kill(admin, true); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	if v := s.Interrupt(rc); v != Kill {
		t.Fatalf("Interrupt() after Kill() = %v, want Kill", v)
	}

	if err := s.Reset(rc); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if s.IsTimedOut() {
		t.Error("IsTimedOut() should be false after Reset()")
	}
}

// Scenario 4: a write-dirty script cannot be killed.
func TestCore_UnkillableAfterWrite(t *testing.T) {
	s := testServer(t)
	caller := testCaller(s)
	rc := &RunContext{}

	if err := s.Prepare(rc, client.New(0), caller, "writer.lua", true); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if _, err := s.CallCommand(rc, []string{"SET", "k", "1"}); err != nil {
		t.Fatalf("SET error = %v", err)
	}

	admin := client.New(0)
	if err := s.Kill(admin, true); !errors.Is(err, ErrUnkillable) {
		t.Fatalf("Kill() error = %v, want ErrUnkillable", err)
	}

	if v := s.Interrupt(rc); v != Continue {
		t.Errorf("Interrupt() after refused kill = %v, want Continue", v)
	}

	_ = s.Reset(rc)
}

// Scenario 5: OOM refusal before any write, then acceptance once
// write-dirty, even if the latch would otherwise still refuse.
func TestCore_OOMGate(t *testing.T) {
	s := testServer(t)
	s.OOM.SetMaxMemory(1)

	caller := testCaller(s)
	rc := &RunContext{}
	if err := s.Prepare(rc, client.New(0), caller, "oom.lua", true); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	s.OOM.Refresh(1 << 30) // pressure rises after prepare, before the first write

	if _, err := s.CallCommand(rc, []string{"SET", "a", "1"}); !errors.Is(err, ErrOOM) {
		t.Fatalf("first SET error = %v, want ErrOOM", err)
	}
	if rc.has(FlagWriteDirty) {
		t.Error("WRITE_DIRTY should not be set after a refused write")
	}

	_ = s.Reset(rc)

	rc2 := &RunContext{}
	if err := s.Prepare(rc2, client.New(0), caller, "oom2.lua", true); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if _, err := s.CallCommand(rc2, []string{"SET", "a", "1"}); err != nil {
		t.Fatalf("first SET in fresh run error = %v, want nil", err)
	}
	s.OOM.Refresh(1 << 30) // pressure returns mid-script
	if _, err := s.CallCommand(rc2, []string{"SET", "b", "2"}); err != nil {
		t.Fatalf("second SET after WRITE_DIRTY error = %v, want nil (atomicity rule)", err)
	}
	_ = s.Reset(rc2)
}

// Scenario 6: cluster non-local key is refused with no dispatch.
func TestCore_ClusterNonLocalKey(t *testing.T) {
	s := testServer(t)
	s.Cluster.Enabled = true
	s.Cluster.Nodes = nil // no node owns any slot on this server

	caller := testCaller(s)
	rc := &RunContext{}
	if err := s.Prepare(rc, client.New(0), caller, "cluster.lua", true); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if _, err := s.CallCommand(rc, []string{"GET", "somekey"}); !errors.Is(err, ErrNonLocalKey) {
		t.Fatalf("GET error = %v, want ErrNonLocalKey", err)
	}
	if len(s.Repl.Events()) != 0 {
		t.Error("no bracket or propagation should occur for a refused command")
	}

	_ = s.Reset(rc)
}

func TestCore_PrepareRejectsReentry(t *testing.T) {
	s := testServer(t)
	caller := testCaller(s)
	rc1 := &RunContext{}
	rc2 := &RunContext{}

	if err := s.Prepare(rc1, client.New(0), caller, "one.lua", true); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := s.Prepare(rc2, client.New(0), caller, "two.lua", true); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Prepare() error = %v, want ErrAlreadyRunning", err)
	}
	_ = s.Reset(rc1)
	if s.IsRunning() {
		t.Error("IsRunning() should be false after Reset()")
	}
}

func TestCore_KillNotBusy(t *testing.T) {
	s := testServer(t)
	admin := client.New(0)
	if err := s.Kill(admin, true); !errors.Is(err, ErrNotBusy) {
		t.Fatalf("Kill() error = %v, want ErrNotBusy", err)
	}
}

func TestCore_KillWrongMode(t *testing.T) {
	s := testServer(t)
	caller := testCaller(s)
	rc := &RunContext{}
	if err := s.Prepare(rc, client.New(0), caller, "fn", false); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	admin := client.New(0)
	if err := s.Kill(admin, true); !errors.Is(err, ErrWrongKillMode) {
		t.Fatalf("eval-kill of a function error = %v, want ErrWrongKillMode", err)
	}
	if err := s.Kill(admin, false); err != nil {
		t.Fatalf("function-kill of a function error = %v, want nil", err)
	}
	_ = s.Reset(rc)
}

func TestCore_SetProtocolVersion(t *testing.T) {
	s := testServer(t)
	caller := testCaller(s)
	rc := &RunContext{}
	_ = s.Prepare(rc, client.New(0), caller, "fn", true)

	if err := s.SetProtocolVersion(rc, 3); err != nil {
		t.Fatalf("SetProtocolVersion(3) error = %v", err)
	}
	if rc.Pseudo.Proto != 3 {
		t.Errorf("Pseudo.Proto = %d, want 3", rc.Pseudo.Proto)
	}
	if err := s.SetProtocolVersion(rc, 4); err == nil {
		t.Error("SetProtocolVersion(4) should be rejected")
	}
	_ = s.Reset(rc)
}
