// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Quill Authors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath_MissingFileReturnsDefault(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("LoadFromPath() on a missing file = %+v, want Default()", cfg)
	}
}

func TestLoadFromPath_OverlaysOntoDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("script_timeout_ms: 9000\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.ScriptTimeoutMS != 9000 {
		t.Errorf("ScriptTimeoutMS = %d, want 9000", cfg.ScriptTimeoutMS)
	}
	if cfg.NumDatabases != Default().NumDatabases {
		t.Errorf("NumDatabases = %d, want the unchanged default %d", cfg.NumDatabases, Default().NumDatabases)
	}
}

func TestLoadFromPath_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("num_databases: 0\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("LoadFromPath() with num_databases: 0 = nil error, want a validation error")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("script_timeout_ms: 5000\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	changes := make(chan Config, 1)
	w, err := Watch(path, func(c Config) { changes <- c })
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })

	if err := os.WriteFile(path, []byte("script_timeout_ms: 7000\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case cfg := <-changes:
		if cfg.ScriptTimeoutMS != 7000 {
			t.Errorf("reloaded ScriptTimeoutMS = %d, want 7000", cfg.ScriptTimeoutMS)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not invoke onChange after a file write")
	}
}
