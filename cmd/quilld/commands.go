// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package main

import (
	"strconv"
	"time"

	"github.com/quillkv/quill/internal/command"
	"github.com/quillkv/quill/internal/store"
)

// registerBuiltinCommands installs the small KV command table this
// repository ships against st into reg. The individual command
// implementations are intentionally simple — spec.md treats "the
// command table and individual command implementations" as an
// out-of-scope collaborator the scripting core only needs to validate
// against and dispatch through, not redefine.
func registerBuiltinCommands(reg *command.Registry, st *store.Store) error {
	commands := []*command.Command{
		{
			Name:     "PING",
			Arity:    -1,
			Category: command.CategoryConn,
			Handler: func(ctx *command.Context, argv []string) (command.Reply, error) {
				if len(argv) > 1 {
					return command.Reply{Value: argv[1]}, nil
				}
				return command.Reply{Value: "PONG"}, nil
			},
		},
		{
			Name:     "GET",
			Arity:    2,
			Category: command.CategoryRead,
			Keys:     command.KeySpec{FirstKey: 1, LastKey: 1, Step: 1},
			Handler: func(ctx *command.Context, argv []string) (command.Reply, error) {
				v, ok := st.Get(ctx.DB, argv[1])
				if !ok {
					return command.Reply{Value: nil}, nil
				}
				return command.Reply{Value: v}, nil
			},
		},
		{
			Name:     "SET",
			Arity:    3,
			Flags:    command.Write | command.DenyOOM,
			Category: command.CategoryWrite,
			Keys:     command.KeySpec{FirstKey: 1, LastKey: 1, Step: 1},
			Handler: func(ctx *command.Context, argv []string) (command.Reply, error) {
				st.Set(ctx.DB, argv[1], argv[2])
				return command.OK, nil
			},
		},
		{
			Name:     "DEL",
			Arity:    -2,
			Flags:    command.Write,
			Category: command.CategoryWrite,
			Keys:     command.KeySpec{FirstKey: 1, LastKey: -1, Step: 1},
			Handler: func(ctx *command.Context, argv []string) (command.Reply, error) {
				n := st.Del(ctx.DB, argv[1:]...)
				return command.Reply{Value: int64(n)}, nil
			},
		},
		{
			Name:     "INCR",
			Arity:    2,
			Flags:    command.Write | command.DenyOOM,
			Category: command.CategoryWrite,
			Keys:     command.KeySpec{FirstKey: 1, LastKey: 1, Step: 1},
			Handler: func(ctx *command.Context, argv []string) (command.Reply, error) {
				v, err := st.Incr(ctx.DB, argv[1], 1)
				if err != nil {
					return command.Reply{}, err
				}
				return command.Reply{Value: v}, nil
			},
		},
		{
			Name:     "EXPIRE",
			Arity:    3,
			Flags:    command.Write,
			Category: command.CategoryWrite,
			Keys:     command.KeySpec{FirstKey: 1, LastKey: 1, Step: 1},
			Handler: func(ctx *command.Context, argv []string) (command.Reply, error) {
				secs, err := strconv.ParseInt(argv[2], 10, 64)
				if err != nil {
					return command.Reply{}, store.ErrNotInteger
				}
				ok := st.Expire(ctx.DB, argv[1], time.Duration(secs)*time.Second)
				if ok {
					return command.Reply{Value: int64(1)}, nil
				}
				return command.Reply{Value: int64(0)}, nil
			},
		},
		{
			Name:     "TTL",
			Arity:    2,
			Category: command.CategoryRead,
			Keys:     command.KeySpec{FirstKey: 1, LastKey: 1, Step: 1},
			Handler: func(ctx *command.Context, argv []string) (command.Reply, error) {
				ttl := st.TTL(ctx.DB, argv[1])
				// -1 (no expiry) and -2 (no such key) are sentinel Duration
				// values, not real elapsed time; dividing them by time.Second
				// would collapse both to 0.
				if ttl == -1 || ttl == -2 {
					return command.Reply{Value: int64(ttl)}, nil
				}
				return command.Reply{Value: int64(ttl / time.Second)}, nil
			},
		},
		{
			Name:     "FLUSHDB",
			Arity:    1,
			Flags:    command.Write,
			Category: command.CategoryWrite,
			Handler: func(ctx *command.Context, argv []string) (command.Reply, error) {
				st.FlushDB(ctx.DB)
				return command.OK, nil
			},
		},
	}

	for _, cmd := range commands {
		if err := reg.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}
