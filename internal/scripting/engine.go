// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package scripting

import (
	"time"

	"github.com/quillkv/quill/internal/client"
	"github.com/quillkv/quill/internal/core"
)

// DefaultInterruptInterval is how often Engine ticks the core's timeout
// supervisor while a script runs. spec.md leaves the cadence to the
// engine host; 5ms keeps a killed script's kill latency imperceptible
// without burning a goroutine wakeup per VM instruction.
const DefaultInterruptInterval = 5 * time.Millisecond

// Engine is the "scripting engine" spec.md treats as an external
// collaborator of the core package: it owns a Runner, drives
// core.Server's Prepare/Interrupt/Reset lifecycle around every script
// invocation, and translates a Kill verdict into a VM interrupt. Goja
// itself runs script code synchronously on the calling goroutine — in
// keeping with the single-threaded, cooperative-cancellation model
// spec.md §5 describes — so ticking the timeout supervisor requires a
// second goroutine that only ever calls Interrupt() and, on Kill,
// Runner.Interrupt(). Admin jobs pumped by Interrupt (such as a kill)
// run on that goroutine too; core.Server's mutex serializes them with
// the script's own calls.
type Engine struct {
	server   *core.Server
	runner   *GojaRunner
	interval time.Duration
}

// NewEngine creates an Engine bound to server, using a fresh GojaRunner.
func NewEngine(server *core.Server) *Engine {
	return &Engine{
		server:   server,
		runner:   NewGojaRunner(server),
		interval: DefaultInterruptInterval,
	}
}

// SetOutput routes the script's print()/log() calls to fn.
func (e *Engine) SetOutput(fn func(string)) {
	e.runner.SetOutput(fn)
}

// SetInterruptInterval overrides the cadence Execute ticks the timeout
// supervisor at. Mainly useful for tests that want a deterministic,
// very short interval.
func (e *Engine) SetInterruptInterval(d time.Duration) {
	e.interval = d
}

// Execute runs code on behalf of caller as either an ad-hoc eval script
// or a stored function, end to end: it prepares a fresh run context,
// starts the cooperative timeout-ticking goroutine, runs the script to
// completion or interruption, and resets the run context regardless of
// how the script exited. readOnly corresponds to the EVAL_RO/FCALL_RO
// script-declared-read-only contract.
//
// Compiling and caching named function bodies is out of scope per
// spec.md's Non-goals; callers resolve funcName to code themselves.
func (e *Engine) Execute(caller *client.Client, funcName, code string, isEval, readOnly bool) (Result, error) {
	rc := &core.RunContext{}
	pseudo := client.New(caller.DB)

	if err := e.server.Prepare(rc, pseudo, caller, funcName, isEval); err != nil {
		return Result{}, err
	}
	if readOnly {
		rc.SetReadOnly()
	}
	e.runner.BindRunContext(rc)

	done := make(chan struct{})
	go e.watch(rc, done)

	result, runErr := e.runner.Run(code)
	close(done)

	if resetErr := e.server.Reset(rc); resetErr != nil && runErr == nil {
		runErr = resetErr
	}
	return result, runErr
}

// watch ticks the timeout supervisor at e.interval until done closes or
// a tick reports Kill, in which case it interrupts the Goja VM and
// stops — mirroring the engine host's "periodically call interrupt"
// contract from spec.md §2 without needing the script itself to yield.
func (e *Engine) watch(rc *core.RunContext, done <-chan struct{}) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if e.server.Interrupt(rc) == core.Kill {
				e.runner.Interrupt()
				return
			}
		}
	}
}
