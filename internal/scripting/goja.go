// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package scripting

import (
	"errors"

	"github.com/dop251/goja"

	"github.com/quillkv/quill/internal/core"
	"github.com/quillkv/quill/internal/jsapi"
)

// GojaRunner implements Runner using the Goja JavaScript interpreter.
// The runtime is created once and reused across invocations the way a
// REPL's runner is; BindRunContext rebinds its jsapi bindings to
// whichever run context is currently prepared on the server.
type GojaRunner struct {
	vm     *goja.Runtime
	api    *jsapi.API
	output func(string)
}

// NewGojaRunner creates a Goja-based runner whose call()/pcall()
// bindings dispatch through server's command gateway.
func NewGojaRunner(server *core.Server) *GojaRunner {
	r := &GojaRunner{
		output: func(string) {}, // default: discard output
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	api := jsapi.NewAPI(server, nil, func(msg string) {
		r.output(msg)
	})
	if err := api.RegisterAll(vm); err != nil {
		// Registration errors are programming bugs, not runtime errors.
		panic("failed to register JS API: " + err.Error())
	}

	r.vm = vm
	r.api = api
	return r
}

// BindRunContext rebinds the runner's API calls to rc for the
// invocation about to run. Must be called before Run for every fresh
// script execution.
func (r *GojaRunner) BindRunContext(rc *core.RunContext) {
	r.api.SetRunContext(rc)
}

// Run executes JavaScript code and returns the result. It clears any
// interrupt flag left armed by a previous Interrupt() call that raced
// with that invocation's own completion, so a stale kill can never
// abort the next, unrelated script.
func (r *GojaRunner) Run(code string) (Result, error) {
	r.vm.ClearInterrupt()

	result, err := r.vm.RunString(code)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return Result{}, &ScriptError{Message: "script killed by administrator"}
		}
		var exc *goja.Exception
		if errors.As(err, &exc) {
			return Result{}, &ScriptError{Message: exc.String()}
		}
		return Result{}, err
	}

	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return Result{IsEmpty: true}, nil
	}
	return Result{Value: result.Export()}, nil
}

// SetOutput sets the function used for print() and log() output.
func (r *GojaRunner) SetOutput(fn func(string)) {
	if fn == nil {
		r.output = func(string) {}
	} else {
		r.output = fn
	}
}

// Interrupt aborts the currently running script. Safe to call from
// another goroutine, which is exactly how Engine's timeout-ticking
// loop uses it.
func (r *GojaRunner) Interrupt() {
	r.vm.Interrupt("script interrupted")
}

// Runtime returns the underlying Goja runtime. Use sparingly — prefer
// the Runner interface for portability.
func (r *GojaRunner) Runtime() *goja.Runtime {
	return r.vm
}

var _ Runner = (*GojaRunner)(nil)
