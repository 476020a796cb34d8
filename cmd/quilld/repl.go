// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"github.com/quillkv/quill/internal/client"
	"github.com/quillkv/quill/internal/scripting"
)

// consoleState bundles what the admin console needs to evaluate
// scripts against the running server. Every line the operator types is
// either a console built-in (eval, eval_ro, function, help, quit/exit)
// or passed to the embedded scripting engine as an EVAL.
type consoleState struct {
	engine *scripting.Engine
	caller *client.Client
}

func newConsoleState(eng *scripting.Engine) *consoleState {
	c := client.New(0)
	c.User = "default"
	return &consoleState{engine: eng, caller: c}
}

// eval runs code as an ad-hoc eval script. readOnly selects EVAL_RO
// semantics.
func (c *consoleState) eval(code string, readOnly bool) {
	result, err := c.engine.Execute(c.caller, "console", code, true, readOnly)
	if err != nil {
		fmt.Printf("(error) %v\n", err)
		return
	}
	if result.IsEmpty {
		fmt.Println("(nil)")
		return
	}
	fmt.Printf("%v\n", result.Value)
}

func startBasicREPL(state *consoleState) {
	fmt.Println("Running in basic mode (no history/completion)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("quilld> ")
		if !scanner.Scan() {
			break
		}
		if handleLine(state, scanner.Text()) {
			break
		}
	}
}

func startREPL(state *consoleState) {
	fmt.Println("quilld admin console")
	fmt.Println("Type 'help' for available commands or 'quit' to exit.")
	fmt.Println("Scripts run here block this console; use the admin socket's")
	fmt.Println("SCRIPT KILL / FUNCTION KILL to interrupt one from elsewhere.")

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		startBasicREPL(state)
		return
	}

	homeDir, _ := os.UserHomeDir()
	historyFile := filepath.Join(homeDir, ".quilld_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "quilld> ",
		HistoryFile:     historyFile,
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Failed to create readline instance, falling back to basic input: %v\n", err)
		startBasicREPL(state)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		if handleLine(state, line) {
			break
		}
	}
}

// handleLine processes one console line; it returns true when the
// console should exit.
func handleLine(state *consoleState, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	fields := strings.Fields(trimmed)
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true
	case "help":
		printHelp()
		return false
	case "eval":
		state.eval(strings.TrimSpace(strings.TrimPrefix(trimmed, fields[0])), false)
		return false
	case "eval_ro":
		state.eval(strings.TrimSpace(strings.TrimPrefix(trimmed, fields[0])), true)
		return false
	case "function":
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, fields[0]))
		name, body, ok := strings.Cut(rest, " ")
		if !ok {
			fmt.Println("usage: function <name> <js code>")
			return false
		}
		result, err := state.engine.Execute(state.caller, name, body, false, false)
		if err != nil {
			fmt.Printf("(error) %v\n", err)
		} else if !result.IsEmpty {
			fmt.Printf("%v\n", result.Value)
		}
		return false
	default:
		// Anything else is treated as a single inline EVAL, so the
		// console can run e.g. `call("GET", "a")` directly.
		state.eval(trimmed, false)
		return false
	}
}

func printHelp() {
	fmt.Println(`quilld admin console commands:
  eval <js>       run js as an ad-hoc EVAL script
  eval_ro <js>    run js as a read-only EVAL_RO script
  function <name> <js>  run js as a named stored FUNCTION
  help            show this message
  quit / exit     leave the console

Any other input is run as an inline eval, e.g.:
  call("SET", "a", "1")`)
}
