// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package client

import (
	"testing"

	"github.com/google/uuid"
)

func TestNew_DefaultsProtocolAndDatabase(t *testing.T) {
	c := New(3)
	if c.DB != 3 {
		t.Errorf("DB = %d, want 3", c.DB)
	}
	if c.Proto != DefaultProtocol {
		t.Errorf("Proto = %d, want %d", c.Proto, DefaultProtocol)
	}
	if c.ID == uuid.Nil {
		t.Error("New() produced a zero-value ID")
	}
}

func TestClient_FlagsAreIndependentBits(t *testing.T) {
	c := New(0)
	if c.HasFlag(FlagMulti) || c.HasFlag(FlagReadOnly) || c.HasFlag(FlagAsking) {
		t.Fatal("a fresh Client has flags already set")
	}

	c.SetFlag(FlagMulti)
	if !c.HasFlag(FlagMulti) {
		t.Error("HasFlag(FlagMulti) after SetFlag = false, want true")
	}
	if c.HasFlag(FlagReadOnly) {
		t.Error("SetFlag(FlagMulti) incorrectly set FlagReadOnly")
	}

	c.SetFlag(FlagReadOnly)
	c.ClearFlag(FlagMulti)
	if c.HasFlag(FlagMulti) {
		t.Error("HasFlag(FlagMulti) after ClearFlag = true, want false")
	}
	if !c.HasFlag(FlagReadOnly) {
		t.Error("ClearFlag(FlagMulti) incorrectly cleared FlagReadOnly")
	}
}

func TestClient_ProtectIsReferenceCounted(t *testing.T) {
	c := New(0)
	if c.IsProtected() {
		t.Fatal("a fresh Client is already protected")
	}

	c.Protect()
	c.Protect()
	if !c.IsProtected() {
		t.Fatal("IsProtected() after two Protect() calls = false, want true")
	}

	c.Unprotect()
	if !c.IsProtected() {
		t.Error("IsProtected() after releasing one of two references = false, want true")
	}

	c.Unprotect()
	if c.IsProtected() {
		t.Error("IsProtected() after releasing both references = true, want false")
	}
}

func TestClient_SuppressNextPropagationIsConsumedOnce(t *testing.T) {
	c := New(0)
	if c.ConsumeSuppressNextPropagation() {
		t.Fatal("ConsumeSuppressNextPropagation() on a fresh Client = true, want false")
	}

	c.RequestSuppressNextPropagation()
	if !c.ConsumeSuppressNextPropagation() {
		t.Error("ConsumeSuppressNextPropagation() after a request = false, want true")
	}
	if c.ConsumeSuppressNextPropagation() {
		t.Error("ConsumeSuppressNextPropagation() returned true twice for a single request")
	}
}

func TestClient_SetBlocked(t *testing.T) {
	c := New(0)
	if c.Blocked() {
		t.Fatal("a fresh Client reports Blocked() = true")
	}
	c.SetBlocked(true)
	if !c.Blocked() {
		t.Error("Blocked() after SetBlocked(true) = false, want true")
	}
}
