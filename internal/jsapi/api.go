// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

// Package jsapi provides the JavaScript bindings through which a
// running script issues server commands and reads its own run-context
// state. It is adapted from aplane's jsapi package, which exposed
// engine operations the same way (a thin API struct registering bound
// closures onto a Goja runtime); this version binds to core.Server and
// core.RunContext instead of a transaction-signing engine.
package jsapi

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/quillkv/quill/internal/core"
	"github.com/quillkv/quill/internal/replication"
)

// API provides JavaScript bindings bound to one run context's server
// and invocation state.
type API struct {
	server  *core.Server
	rc      *core.RunContext
	runtime *goja.Runtime
	output  func(string)
}

// NewAPI creates an API bound to server. rc may be nil at construction
// time and supplied later via SetRunContext once a run context exists
// — RegisterAll is typically called once against a long-lived runtime,
// while a fresh run context is prepared for every script invocation.
// output receives text from the script's print()/log() calls; nil
// prints it to stdout.
func NewAPI(server *core.Server, rc *core.RunContext, output func(string)) *API {
	return &API{server: server, rc: rc, output: output}
}

// SetRunContext rebinds the API to a new invocation's run context. The
// engine calls this before each script run so a single persistent Goja
// runtime's bound closures operate on the current run rather than a
// stale one.
func (a *API) SetRunContext(rc *core.RunContext) {
	a.rc = rc
}

// RegisterAll installs every binding onto vm.
func (a *API) RegisterAll(vm *goja.Runtime) error {
	a.runtime = vm

	set := func(name string, fn func(goja.FunctionCall) goja.Value) error {
		return vm.Set(name, fn)
	}

	if err := set("print", a.jsPrint); err != nil {
		return fmt.Errorf("failed to register print: %w", err)
	}
	if err := set("log", a.jsLog); err != nil {
		return fmt.Errorf("failed to register log: %w", err)
	}
	if err := set("call", a.jsCall); err != nil {
		return fmt.Errorf("failed to register call: %w", err)
	}
	if err := set("pcall", a.jsPCall); err != nil {
		return fmt.Errorf("failed to register pcall: %w", err)
	}
	if err := set("setresp", a.jsSetResp); err != nil {
		return fmt.Errorf("failed to register setresp: %w", err)
	}
	if err := set("setrepl", a.jsSetRepl); err != nil {
		return fmt.Errorf("failed to register setrepl: %w", err)
	}
	if err := vm.Set("REPL_AOF", replication.DestAOF); err != nil {
		return fmt.Errorf("failed to register REPL_AOF: %w", err)
	}
	if err := vm.Set("REPL_REPLICAS", replication.DestReplicas); err != nil {
		return fmt.Errorf("failed to register REPL_REPLICAS: %w", err)
	}
	if err := vm.Set("REPL_NONE", replication.Dest(0)); err != nil {
		return fmt.Errorf("failed to register REPL_NONE: %w", err)
	}

	return nil
}

func (a *API) outputMsg(msg string) {
	if a.output != nil {
		a.output(msg)
	} else {
		fmt.Println(msg)
	}
}

// jsPrint outputs a message to the console.
func (a *API) jsPrint(call goja.FunctionCall) goja.Value {
	args := make([]interface{}, len(call.Arguments))
	for i, arg := range call.Arguments {
		args[i] = arg.Export()
	}
	a.outputMsg(fmt.Sprint(args...))
	return goja.Undefined()
}

// jsLog outputs a debug-tagged message to the console.
func (a *API) jsLog(call goja.FunctionCall) goja.Value {
	args := make([]interface{}, len(call.Arguments))
	for i, arg := range call.Arguments {
		args[i] = arg.Export()
	}
	a.outputMsg("[debug] " + fmt.Sprint(args...))
	return goja.Undefined()
}

// jsCall invokes a command through the gateway, raising a JS exception
// on any error the gateway or the command handler returns.
func (a *API) jsCall(call goja.FunctionCall) goja.Value {
	argv := a.callArgv(call, "call")
	reply, err := a.server.CallCommand(a.rc, argv)
	if err != nil {
		panic(a.runtime.ToValue(err.Error()))
	}
	return a.runtime.ToValue(reply.Value)
}

// jsPCall invokes a command through the gateway like jsCall, but
// returns a {err: "..."} object instead of raising on failure.
func (a *API) jsPCall(call goja.FunctionCall) goja.Value {
	argv := a.callArgv(call, "pcall")
	reply, err := a.server.CallCommand(a.rc, argv)
	if err != nil {
		return a.runtime.ToValue(map[string]interface{}{"err": err.Error()})
	}
	return a.runtime.ToValue(reply.Value)
}

func (a *API) callArgv(call goja.FunctionCall, fnName string) []string {
	if len(call.Arguments) == 0 {
		panic(a.runtime.ToValue(fnName + "() requires at least a command name"))
	}
	argv := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		argv[i] = arg.String()
	}
	return argv
}

// jsSetResp implements set_protocol_version for the running script.
func (a *API) jsSetResp(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) < 1 {
		panic(a.runtime.ToValue("setresp() requires a protocol version argument"))
	}
	v := int(call.Arguments[0].ToInteger())
	if err := a.server.SetProtocolVersion(a.rc, v); err != nil {
		panic(a.runtime.ToValue(err.Error()))
	}
	return goja.Undefined()
}

// jsSetRepl implements set_replication for the running script.
func (a *API) jsSetRepl(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) < 1 {
		panic(a.runtime.ToValue("setrepl() requires a replication mask argument"))
	}
	mask := replication.Dest(call.Arguments[0].ToInteger())
	if err := a.server.SetReplication(a.rc, mask); err != nil {
		panic(a.runtime.ToValue(err.Error()))
	}
	return goja.Undefined()
}
