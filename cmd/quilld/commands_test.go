// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package main

import (
	"testing"

	"github.com/quillkv/quill/internal/command"
	"github.com/quillkv/quill/internal/store"
)

func TestRegisterBuiltinCommands_DispatchesThroughHandlers(t *testing.T) {
	st := store.New(1)
	reg := command.NewRegistry()
	if err := registerBuiltinCommands(reg, st); err != nil {
		t.Fatalf("registerBuiltinCommands() error = %v", err)
	}

	ctx := &command.Context{DB: 0}

	set, ok := reg.Lookup("SET")
	if !ok {
		t.Fatal("SET not registered")
	}
	if _, err := set.Handler(ctx, []string{"SET", "k", "v"}); err != nil {
		t.Fatalf("SET handler error = %v", err)
	}

	get, _ := reg.Lookup("GET")
	reply, err := get.Handler(ctx, []string{"GET", "k"})
	if err != nil || reply.Value != "v" {
		t.Fatalf("GET handler = (%v, %v), want (\"v\", nil)", reply.Value, err)
	}

	incr, _ := reg.Lookup("INCR")
	if _, err := incr.Handler(ctx, []string{"INCR", "counter"}); err != nil {
		t.Fatalf("INCR handler error = %v", err)
	}
	reply, _ = incr.Handler(ctx, []string{"INCR", "counter"})
	if reply.Value != int64(2) {
		t.Errorf("INCR handler after two calls = %v, want 2", reply.Value)
	}

	del, _ := reg.Lookup("DEL")
	reply, err = del.Handler(ctx, []string{"DEL", "k", "counter", "missing"})
	if err != nil || reply.Value != int64(2) {
		t.Errorf("DEL handler = (%v, %v), want (2, nil)", reply.Value, err)
	}
}

func TestRegisterBuiltinCommands_TTLPreservesSentinels(t *testing.T) {
	st := store.New(1)
	reg := command.NewRegistry()
	if err := registerBuiltinCommands(reg, st); err != nil {
		t.Fatalf("registerBuiltinCommands() error = %v", err)
	}
	ctx := &command.Context{DB: 0}
	ttl, _ := reg.Lookup("TTL")

	reply, err := ttl.Handler(ctx, []string{"TTL", "missing"})
	if err != nil || reply.Value != int64(-2) {
		t.Errorf("TTL on a missing key = (%v, %v), want (-2, nil)", reply.Value, err)
	}

	set, _ := reg.Lookup("SET")
	if _, err := set.Handler(ctx, []string{"SET", "k", "v"}); err != nil {
		t.Fatalf("SET handler error = %v", err)
	}
	reply, err = ttl.Handler(ctx, []string{"TTL", "k"})
	if err != nil || reply.Value != int64(-1) {
		t.Errorf("TTL on a key with no expiry = (%v, %v), want (-1, nil)", reply.Value, err)
	}

	expire, _ := reg.Lookup("EXPIRE")
	if _, err := expire.Handler(ctx, []string{"EXPIRE", "k", "60"}); err != nil {
		t.Fatalf("EXPIRE handler error = %v", err)
	}
	reply, err = ttl.Handler(ctx, []string{"TTL", "k"})
	if err != nil || reply.Value.(int64) <= 0 || reply.Value.(int64) > 60 {
		t.Errorf("TTL on a key with a 60s expiry = (%v, %v), want in (0, 60]", reply.Value, err)
	}
}

func TestRegisterBuiltinCommands_RegistersEveryCommand(t *testing.T) {
	st := store.New(1)
	reg := command.NewRegistry()
	if err := registerBuiltinCommands(reg, st); err != nil {
		t.Fatalf("registerBuiltinCommands() error = %v", err)
	}

	for _, name := range []string{"PING", "GET", "SET", "DEL", "INCR", "EXPIRE", "TTL", "FLUSHDB"} {
		if _, ok := reg.Lookup(name); !ok {
			t.Errorf("command %s was not registered", name)
		}
	}
}
