// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

// Package config loads and hot-reloads quilld's configuration file. It
// follows a data-dir/config.yaml layout and load-then-validate shape,
// extended with an fsnotify watcher since a long-running server (unlike
// a short-lived CLI) needs to notice edits to maxmemory and the script
// timeout without a restart.
package config

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Config holds quilld's server-wide settings.
type Config struct {
	NumDatabases    int    `yaml:"num_databases" description:"number of selectable keyspaces" default:"16"`
	ScriptTimeoutMS int64  `yaml:"script_timeout_ms" description:"slow-script threshold before entering timed-out mode" default:"5000"`
	MaxMemoryBytes  int64  `yaml:"max_memory_bytes" description:"OOM cap; 0 disables the check" default:"0"`
	ReplicaReadOnly bool   `yaml:"replica_read_only" description:"refuse writes from ordinary clients while in replica role" default:"true"`
	ClusterEnabled  bool   `yaml:"cluster_enabled" description:"enable cluster slot-locality checks" default:"false"`
	AdminSocketPath string `yaml:"admin_socket_path" description:"unix socket accepting out-of-band admin commands such as SCRIPT KILL" default:"/tmp/quilld.admin.sock"`
}

// Default returns the configuration quilld starts with before any
// config file is read.
func Default() Config {
	return Config{
		NumDatabases:    16,
		ScriptTimeoutMS: 5000,
		MaxMemoryBytes:  0,
		ReplicaReadOnly: true,
		ClusterEnabled:  false,
		AdminSocketPath: "/tmp/quilld.admin.sock",
	}
}

// LoadFromPath loads configuration from path, overlaying it onto
// Default(). A missing file is not an error: Default() is returned
// unchanged.
func LoadFromPath(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.NumDatabases < 1 {
		return fmt.Errorf("num_databases must be at least 1, got %d", c.NumDatabases)
	}
	if c.ScriptTimeoutMS < 1 {
		return fmt.Errorf("script_timeout_ms must be positive, got %d", c.ScriptTimeoutMS)
	}
	if c.MaxMemoryBytes < 0 {
		return fmt.Errorf("max_memory_bytes cannot be negative, got %d", c.MaxMemoryBytes)
	}
	return nil
}

// Watcher notifies a callback whenever the config file on disk changes,
// reloading and validating it before invoking the callback so a bad
// edit never reaches the running server.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching path for changes, invoking onChange with the
// newly loaded Config after each write. Call Close to stop watching.
func Watch(path string, onChange func(Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching config file: %w", err)
	}

	w := &Watcher{path: path, watcher: fw, done: make(chan struct{})}
	go w.loop(onChange)
	return w, nil
}

func (w *Watcher) loop(onChange func(Config)) {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := LoadFromPath(w.path)
			if err != nil {
				continue
			}
			onChange(cfg)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher goroutine.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
