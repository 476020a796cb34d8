// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

// Command quilld is quill's administration console. It wires the
// scripting execution core (internal/core) to a minimal in-memory
// store and command table, loads server configuration, and drives the
// core either interactively (an EVAL/FUNCTION console) or for a single
// script passed on the command line. Full RESP client I/O and network
// protocol framing are out of scope for this repository (spec.md §1);
// quilld exists to give the core a real caller to drive it with.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/quillkv/quill/internal/auth"
	"github.com/quillkv/quill/internal/client"
	"github.com/quillkv/quill/internal/command"
	"github.com/quillkv/quill/internal/config"
	"github.com/quillkv/quill/internal/core"
	"github.com/quillkv/quill/internal/scripting"
	"github.com/quillkv/quill/internal/store"
	"github.com/quillkv/quill/internal/util"
	"github.com/quillkv/quill/internal/version"
)

func main() {
	printVersion := flag.Bool("version", false, "Print version and exit")
	configPath := flag.String("config", "", "Path to config.yaml (default: built-in defaults)")
	evalExpr := flag.String("e", "", "Run a single EVAL script and exit")
	replica := flag.Bool("replica", false, "Start in replica role (enables replica-read-only enforcement)")
	clusterEnabled := flag.Bool("cluster", false, "Enable cluster slot-locality checks")
	flag.Parse()

	if *printVersion {
		fmt.Printf("quilld %s\n", version.String())
		os.Exit(0)
	}

	util.InitLogger()

	cfg, err := config.LoadFromPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	st := store.New(cfg.NumDatabases)
	reg := command.NewRegistry()
	if err := registerBuiltinCommands(reg, st); err != nil {
		fmt.Fprintf(os.Stderr, "Error: registering commands: %v\n", err)
		os.Exit(1)
	}

	server := core.NewServer(st, reg)
	server.ScriptTimeoutMS = cfg.ScriptTimeoutMS
	server.ReplicaReadOnly = cfg.ReplicaReadOnly
	server.IsReplica = *replica
	server.Cluster.Enabled = cfg.ClusterEnabled || *clusterEnabled
	server.OOM.SetMaxMemory(cfg.MaxMemoryBytes)
	server.ACL.AddUser(&auth.User{Name: "default", AllCommands: true, AllKeys: true})

	if *configPath != "" {
		watcher, err := config.Watch(*configPath, func(updated config.Config) {
			server.ScriptTimeoutMS = updated.ScriptTimeoutMS
			server.ReplicaReadOnly = updated.ReplicaReadOnly
			server.Cluster.Enabled = updated.ClusterEnabled
			server.OOM.SetMaxMemory(updated.MaxMemoryBytes)
			util.Debug("config reloaded", "script_timeout_ms", updated.ScriptTimeoutMS)
		})
		if err != nil {
			util.Debug("config watcher disabled", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	admin := newAdminServer(server, server.Loop, cfg.AdminSocketPath)
	if err := admin.Listen(); err != nil {
		util.Debug("admin socket disabled", "error", err)
	} else {
		go admin.Serve()
		defer admin.Close()
	}

	stop := make(chan struct{})
	go runIdlePump(server.Loop, stop)
	defer close(stop)

	eng := scripting.NewEngine(server)
	eng.SetOutput(func(msg string) { fmt.Println(msg) })

	if *evalExpr != "" {
		caller := client.New(0)
		caller.User = "default"
		result, err := eng.Execute(caller, "cli", *evalExpr, true, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !result.IsEmpty {
			fmt.Println(result.Value)
		}
		return
	}

	startREPL(newConsoleState(eng))
}
