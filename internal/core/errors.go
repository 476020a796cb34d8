// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package core

import "errors"

var (
	// ErrAlreadyRunning is returned by Prepare when a run context is
	// already installed; prepare is not reentrant.
	ErrAlreadyRunning = errors.New("a script is already running")

	// ErrNotRunning is returned by operations that require a specific
	// run context to be the active singleton.
	ErrNotRunning = errors.New("no script is running")

	// ErrNotBusy is the admin-facing error when kill is requested but
	// no script is running.
	ErrNotBusy = errors.New("NOTBUSY No scripts in execution right now")

	// ErrUnkillable is the admin-facing error when kill targets a
	// script that has already written, or whose caller is this
	// server's upstream master.
	ErrUnkillable = errors.New("UNKILLABLE Sorry the script already executed write commands against the dataset")

	// ErrWrongKillMode is returned when an eval-mode kill targets a
	// running function, or vice versa.
	ErrWrongKillMode = errors.New("UNKILLABLE wrong kill command variant for the running script's mode")

	// ErrUnknownCommand is the gateway lookup-step failure.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrWrongArity is the gateway arity-step failure.
	ErrWrongArity = errors.New("wrong number of arguments")

	// ErrNoScript is returned when a command flagged NOSCRIPT is
	// issued from a script.
	ErrNoScript = errors.New("this command is not allowed from script")

	// ErrReadOnlyScript is returned when a write command is issued by
	// a script that declared itself read-only.
	ErrReadOnlyScript = errors.New("write commands are not allowed from read-only scripts")

	// ErrReplicaReadOnly is returned when a write is refused because
	// this server is a read-only replica and the caller is neither the
	// append-only-log loader nor the upstream master.
	ErrReplicaReadOnly = errors.New("READONLY You can't write against a read only replica")

	// ErrSnapshotFailed and ErrLogFailed are returned when the
	// persistence watchdog reports a disk error blocking writes.
	ErrSnapshotFailed = errors.New("MISCONF Quill is configured to save snapshots, but the last snapshot failed")
	ErrLogFailed      = errors.New("MISCONF Errors writing to the append-only log")

	// ErrOOM is returned when a memory-enlarging command is refused
	// under the OOM latch.
	ErrOOM = errors.New("OOM command not allowed when used memory > 'maxmemory'")

	// ErrClusterDownReadOnly, ErrClusterDown, and ErrNonLocalKey are
	// the three cluster-locality refusal reasons.
	ErrClusterDownReadOnly = errors.New("CLUSTERDOWN The cluster is down and client-side write in read-only state")
	ErrClusterDown         = errors.New("CLUSTERDOWN The cluster is down")
	ErrNonLocalKey         = errors.New("CROSSSLOT Keys do not map to this node")

	// ErrBlockedAfterDispatch signals a command handler left the
	// pseudo-client in a blocked state, which scripts do not support.
	ErrBlockedAfterDispatch = errors.New("scripts do not support blocking commands")

	// ErrBadProtocolVersion and ErrBadReplicationMask are returned by
	// the script-settable policy operations.
	ErrBadProtocolVersion = errors.New("RESP protocol version must be 2 or 3")
	ErrBadReplicationMask = errors.New("replication mask must be a subset of {AOF, REPLICAS}")
)
