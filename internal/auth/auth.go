// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

// Package auth implements the authorization policy engine the command
// gateway consults before dispatching a script-issued command: given a
// client's identity, does it have permission to run this command
// against these keys?
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/quillkv/quill/internal/command"
)

// Denial categorizes why check_all_permissions refused a command, so
// the gateway can map it to the right script-visible error tag and
// audit-log entry.
type Denial int

const (
	// Allowed means the command may proceed.
	Allowed Denial = iota
	// DeniedCmd means the user's ACL does not include this command.
	DeniedCmd
	// DeniedKey means the user's ACL excludes one of the keys touched.
	DeniedKey
	// DeniedChannel means the user's ACL excludes a pub/sub channel
	// named in the command (reserved for future channel-bearing
	// commands; unused by the KV command set this repository ships).
	DeniedChannel
	// DeniedOther covers any other denial reason (disabled user, etc).
	DeniedOther
)

func (d Denial) String() string {
	switch d {
	case Allowed:
		return "ALLOWED"
	case DeniedCmd:
		return "DENIED_CMD"
	case DeniedKey:
		return "DENIED_KEY"
	case DeniedChannel:
		return "DENIED_CHANNEL"
	default:
		return "DENIED_OTHER"
	}
}

// ErrDenied wraps a Denial as an error carrying the categorized reason,
// the shape the gateway forwards to the scripting engine.
type ErrDenied struct {
	Reason Denial
}

func (e *ErrDenied) Error() string { return "NOPERM " + e.Reason.String() }

// User holds one authenticated identity's command and key ACL.
type User struct {
	Name           string
	PasswordHash   []byte
	AllCommands    bool
	AllKeys        bool
	AllowedCmds    map[string]bool
	AllowedKeyGlob []string
	Disabled       bool
}

// NewUser creates a User with password hashed via bcrypt, matching the
// hashing cost the rest of this repository's authentication surface
// uses.
func NewUser(name, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &User{Name: name, PasswordHash: hash, AllowedCmds: make(map[string]bool)}, nil
}

// CheckPassword reports whether password matches the user's stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) == nil
}

// ACL resolves users by name for the gateway's authorization step.
type ACL struct {
	users map[string]*User
}

// NewACL creates an empty ACL table.
func NewACL() *ACL {
	return &ACL{users: make(map[string]*User)}
}

// AddUser installs u, replacing any existing user of the same name.
func (a *ACL) AddUser(u *User) {
	a.users[u.Name] = u
}

// Lookup resolves a user by name.
func (a *ACL) Lookup(name string) (*User, bool) {
	u, ok := a.users[name]
	return u, ok
}

var errNoSuchUser = errors.New("no such user")

// CheckAllPermissions evaluates whether username may run cmd against
// keys, mirroring the consumed check_all_permissions contract: command
// authorization first, then per-key authorization.
func (a *ACL) CheckAllPermissions(username string, cmd *command.Command, keys []string) error {
	u, ok := a.users[username]
	if !ok {
		return errNoSuchUser
	}
	if u.Disabled {
		return &ErrDenied{Reason: DeniedOther}
	}
	if !u.AllCommands && !u.AllowedCmds[cmd.Name] {
		return &ErrDenied{Reason: DeniedCmd}
	}
	if !u.AllKeys {
		for _, k := range keys {
			if !keyAllowed(u.AllowedKeyGlob, k) {
				return &ErrDenied{Reason: DeniedKey}
			}
		}
	}
	return nil
}

func keyAllowed(globs []string, key string) bool {
	for _, g := range globs {
		if globMatch(g, key) {
			return true
		}
	}
	return false
}

// globMatch implements the small subset of glob syntax ACL key
// patterns use: '*' matches any suffix, otherwise exact match.
func globMatch(pattern, s string) bool {
	if pattern == "*" {
		return true
	}
	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(s) >= len(prefix) && s[:len(prefix)] == prefix
	}
	return pattern == s
}
