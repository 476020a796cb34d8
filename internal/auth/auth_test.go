// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package auth

import (
	"errors"
	"testing"

	"github.com/quillkv/quill/internal/command"
)

func TestNewUser_PasswordRoundTrips(t *testing.T) {
	u, err := NewUser("alice", "s3cret")
	if err != nil {
		t.Fatalf("NewUser() error = %v", err)
	}
	if !u.CheckPassword("s3cret") {
		t.Error("CheckPassword() with the correct password = false, want true")
	}
	if u.CheckPassword("wrong") {
		t.Error("CheckPassword() with the wrong password = true, want false")
	}
}

func TestACL_CheckAllPermissions(t *testing.T) {
	acl := NewACL()
	acl.AddUser(&User{Name: "full", AllCommands: true, AllKeys: true})
	acl.AddUser(&User{
		Name:           "scoped",
		AllowedCmds:    map[string]bool{"GET": true},
		AllowedKeyGlob: []string{"user:*"},
	})
	acl.AddUser(&User{Name: "disabled", AllCommands: true, AllKeys: true, Disabled: true})

	get := &command.Command{Name: "GET"}
	set := &command.Command{Name: "SET"}

	if err := acl.CheckAllPermissions("full", get, []string{"any:key"}); err != nil {
		t.Errorf("CheckAllPermissions() for an AllCommands/AllKeys user = %v, want nil", err)
	}

	if err := acl.CheckAllPermissions("scoped", get, []string{"user:1"}); err != nil {
		t.Errorf("CheckAllPermissions() for an allowed command/key = %v, want nil", err)
	}

	err := acl.CheckAllPermissions("scoped", set, []string{"user:1"})
	var denied *ErrDenied
	if !errors.As(err, &denied) || denied.Reason != DeniedCmd {
		t.Errorf("CheckAllPermissions() for a disallowed command = %v, want DeniedCmd", err)
	}

	err = acl.CheckAllPermissions("scoped", get, []string{"other:1"})
	if !errors.As(err, &denied) || denied.Reason != DeniedKey {
		t.Errorf("CheckAllPermissions() for a disallowed key = %v, want DeniedKey", err)
	}

	err = acl.CheckAllPermissions("disabled", get, []string{"any"})
	if !errors.As(err, &denied) || denied.Reason != DeniedOther {
		t.Errorf("CheckAllPermissions() for a disabled user = %v, want DeniedOther", err)
	}

	if err := acl.CheckAllPermissions("nobody", get, nil); err == nil {
		t.Error("CheckAllPermissions() for an unknown user = nil, want an error")
	}
}

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern, key string
		want         bool
	}{
		{"*", "anything", true},
		{"user:*", "user:42", true},
		{"user:*", "other:42", false},
		{"exact", "exact", true},
		{"exact", "exactly", false},
	}
	for _, c := range cases {
		if got := globMatch(c.pattern, c.key); got != c.want {
			t.Errorf("globMatch(%q, %q) = %v, want %v", c.pattern, c.key, got, c.want)
		}
	}
}
