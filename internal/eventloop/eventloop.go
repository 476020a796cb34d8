// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

// Package eventloop implements the bounded, non-blocking event pump the
// timeout supervisor drives while a script is in timed-out mode. It is
// grounded on the pack's worker-pool event draining shape (a deadline-
// bounded Drain call serviced between VM calls), simplified here to a
// plain job queue since this repository has no embedded JS event loop
// of its own to drain — jobs arrive from the admin console's Unix
// socket listener instead of from pending JS promises.
package eventloop

import "sync"

// Job is one unit of work submitted for execution on the event-loop
// goroutine — typically an administrative command such as SCRIPT KILL
// arriving out of band while a script runs.
type Job struct {
	Run func()
}

// Loop is a job queue. Submit may be called from any goroutine (the
// admin socket listener). Pump is called from more than one goroutine
// in this repository (the scripting engine's interrupt tick and
// quilld's idle pump ticker); dequeuing is locked, so each job runs
// exactly once, on whichever goroutine dequeued it.
type Loop struct {
	mu    sync.Mutex
	queue []Job
}

// NewLoop creates an empty Loop.
func NewLoop() *Loop {
	return &Loop{}
}

// Submit enqueues job for later execution by Pump. Safe to call from
// any goroutine.
func (l *Loop) Submit(job Job) {
	l.mu.Lock()
	l.queue = append(l.queue, job)
	l.mu.Unlock()
}

// Pending reports whether any jobs are queued.
func (l *Loop) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) > 0
}

// maxBurst bounds how many jobs a single Pump call drains, so an
// administrative flood cannot turn a "bounded, non-blocking" pump into
// an unbounded one.
const maxBurst = 64

// Pump drains up to maxBurst queued jobs, running each synchronously on
// the calling goroutine, and returns. It never blocks waiting for new
// jobs to arrive.
func (l *Loop) Pump() {
	for i := 0; i < maxBurst; i++ {
		job, ok := l.dequeue()
		if !ok {
			return
		}
		job.Run()
	}
}

func (l *Loop) dequeue() (Job, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return Job{}, false
	}
	job := l.queue[0]
	l.queue = l.queue[1:]
	return job, true
}
