// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/quillkv/quill/internal/client"
	"github.com/quillkv/quill/internal/core"
	"github.com/quillkv/quill/internal/eventloop"
	"github.com/quillkv/quill/internal/util"
)

// adminServer accepts out-of-band administrative connections over a
// Unix socket. This is how SCRIPT KILL / FUNCTION KILL reach a script
// that is blocking quilld's single REPL goroutine: the admin connection
// never touches core.Server directly, it submits a Job to the shared
// event-loop queue and waits for the result, so the command runs only
// when the loop is pumped (see internal/eventloop's doc comment).
type adminServer struct {
	server *core.Server
	loop   *eventloop.Loop
	path   string
	ln     net.Listener
}

func newAdminServer(server *core.Server, loop *eventloop.Loop, path string) *adminServer {
	return &adminServer{server: server, loop: loop, path: path}
}

// Listen binds the admin Unix socket, removing a stale socket file left
// behind by an unclean previous shutdown.
func (a *adminServer) Listen() error {
	if a.path == "" {
		return nil
	}
	_ = os.Remove(a.path)
	ln, err := net.Listen("unix", a.path)
	if err != nil {
		return fmt.Errorf("listening on admin socket %s: %w", a.path, err)
	}
	if err := os.Chmod(a.path, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("setting admin socket permissions: %w", err)
	}
	a.ln = ln
	return nil
}

// Serve accepts admin connections until the listener closes. Intended
// to run on its own goroutine.
func (a *adminServer) Serve() {
	if a.ln == nil {
		return
	}
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			return
		}
		go a.handleConn(conn)
	}
}

// Close shuts down the listener and removes the socket file.
func (a *adminServer) Close() error {
	if a.ln == nil {
		return nil
	}
	err := a.ln.Close()
	_ = os.Remove(a.path)
	return err
}

func (a *adminServer) handleConn(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply := a.dispatch(line)
		if _, err := fmt.Fprintln(conn, reply); err != nil {
			util.Debug("admin connection write failed", "error", err)
			return
		}
	}
}

// dispatch submits line's command as a Job to the event-loop queue and
// blocks for its result. The job itself runs on whichever goroutine
// next calls loop.Pump — the timeout supervisor's interrupt tick once a
// script is in timed-out mode, or the server's idle pump ticker, which
// pumps pending jobs whether or not a script is running.
func (a *adminServer) dispatch(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "ERR empty command"
	}
	verb := strings.ToUpper(fields[0])

	result := make(chan string, 1)
	admin := client.New(0)

	switch verb {
	case "SCRIPT":
		if len(fields) >= 2 && strings.ToUpper(fields[1]) == "KILL" {
			a.loop.Submit(eventloop.Job{Run: func() {
				result <- killReply(a.server.Kill(admin, true))
			}})
			return await(result)
		}
		return "ERR unknown SCRIPT subcommand"
	case "FUNCTION":
		if len(fields) >= 2 && strings.ToUpper(fields[1]) == "KILL" {
			a.loop.Submit(eventloop.Job{Run: func() {
				result <- killReply(a.server.Kill(admin, false))
			}})
			return await(result)
		}
		return "ERR unknown FUNCTION subcommand"
	case "STATUS":
		a.loop.Submit(eventloop.Job{Run: func() {
			result <- a.status()
		}})
		return await(result)
	case "PING":
		return "PONG"
	default:
		return "ERR unknown admin command " + verb
	}
}

func (a *adminServer) status() string {
	if !a.server.IsRunning() {
		return "idle"
	}
	name, _ := a.server.CurrentFunctionName()
	dur, _ := a.server.RunDurationMS()
	timedOut := a.server.IsTimedOut()
	return fmt.Sprintf("running function=%q duration_ms=%d timed_out=%t", name, dur, timedOut)
}

func killReply(err error) string {
	if err != nil {
		return err.Error()
	}
	return "OK"
}

// await waits up to a short, generous bound for the event loop to drain
// the submitted job. In the worst case (no script running and the idle
// pump ticker just fired) the job is picked up within one idle-pump
// interval.
func await(result <-chan string) string {
	select {
	case r := <-result:
		return r
	case <-time.After(2 * time.Second):
		return "ERR timed out waiting for the event loop to service this request"
	}
}

// runIdlePump drains loop on a fixed interval so admin commands are
// serviced even while no script is running and the timeout supervisor
// therefore never calls Pump on its own. Stops when stop is closed.
func runIdlePump(loop *eventloop.Loop, stop <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if loop.Pending() {
				loop.Pump()
			}
		}
	}
}
