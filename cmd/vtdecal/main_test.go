package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// useConfig points the -config flag at a file holding yamlContent.
func useConfig(t *testing.T, yamlContent string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if err := flag.Set("config", path); err != nil {
		t.Fatalf("flag.Set: %v", err)
	}
	t.Cleanup(func() { _ = flag.Set("config", "") })
}

func TestRunUsage(t *testing.T) {
	if err := run(nil); err == nil {
		t.Error("expected usage error without a scene")
	}
}

func TestRunFailureKeepsLog(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "vt.log")
	useConfig(t, "logging:\n  level: info\n  log_file: "+logFile+"\n")

	if err := run([]string{filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatal("expected error for a missing scene")
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "failed to load scene") {
		t.Errorf("log file lacks the failure entry:\n%s", content)
	}
}

func TestRunSoftScene(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dumps")
	useConfig(t, "run:\n  backend: soft\n  output_dir: "+out+"\n")

	if err := run([]string{filepath.Join("..", "..", "scenes", "road.yaml")}); err != nil {
		t.Fatalf("run: %v", err)
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatalf("reading dump dir: %v", err)
	}
	if len(entries) == 0 {
		t.Error("no slice images written")
	}
}
