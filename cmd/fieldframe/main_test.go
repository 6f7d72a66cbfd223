package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fieldframe/internal/config"
	"fieldframe/internal/queue"
)

func writeTestConfig(t *testing.T, base string) string {
	t.Helper()
	content := fmt.Sprintf(`[paths]
capture_dir = %q
staging_dir = %q
export_dir = %q
log_dir = %q

[remote]
base_url = "http://127.0.0.1:0"
token = "test-token"
`,
		filepath.Join(base, "capture"),
		filepath.Join(base, "staging"),
		filepath.Join(base, "export"),
		filepath.Join(base, "logs"),
	)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIQueueCommands(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)

	out, _, err := runCLI(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("unexpected queue list output: %q", out)
	}

	// Seed the queue directly through the store the CLI shares.
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	ctx := context.Background()
	if _, err := store.NewRecording(ctx, 1, filepath.Join(base, "a.mp4"), "Alpha Mug"); err != nil {
		t.Fatalf("NewRecording: %v", err)
	}
	failed, err := store.NewRecording(ctx, 2, filepath.Join(base, "b.mp4"), "Beta Lamp")
	if err != nil {
		t.Fatalf("NewRecording: %v", err)
	}
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}
	store.Close()

	out, _, err = runCLI(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "Alpha Mug") || !strings.Contains(out, "Beta Lamp") {
		t.Fatalf("queue list missing items: %q", out)
	}

	out, _, err = runCLI(t, configPath, "queue", "retry")
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	if !strings.Contains(out, "Reset 1 recording(s)") {
		t.Fatalf("unexpected retry output: %q", out)
	}

	out, _, err = runCLI(t, configPath, "queue", "status")
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	if !strings.Contains(out, "Pending") {
		t.Fatalf("unexpected queue status output: %q", out)
	}

	out, _, err = runCLI(t, configPath, "queue", "clear", "--all")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	if !strings.Contains(out, "Removed 2 recording(s)") {
		t.Fatalf("unexpected clear output: %q", out)
	}
}

func TestCLIConfigInit(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "config.toml")

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	// A second init without --overwrite must refuse.
	cmd = newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for existing config")
	}
}

func TestCLIVideosCommand(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)

	captureDir := filepath.Join(base, "capture")
	if err := os.MkdirAll(captureDir, 0o755); err != nil {
		t.Fatalf("mkdir capture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(captureDir, "mug_1.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	out, _, err := runCLI(t, configPath, "videos")
	if err != nil {
		t.Fatalf("videos: %v", err)
	}
	if !strings.Contains(out, "mug_1.mp4") {
		t.Fatalf("videos output missing recording: %q", out)
	}
}
