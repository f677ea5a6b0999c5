package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesPipelineFileAndConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig()

	if err := Init(dir, cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, cfg.PipelineFile)); err != nil {
		t.Errorf("expected pipeline file to be created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, defaultConfigFile)); err != nil {
		t.Errorf("expected config file to be created: %v", err)
	}
}

func TestInitDoesNotClobberExistingPipelineFile(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig()
	custom := "stages:\n  mine:\n    cmd: echo mine\n"
	writeFile(t, filepath.Join(dir, cfg.PipelineFile), custom)

	if err := Init(dir, cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, cfg.PipelineFile))
	if err != nil {
		t.Fatalf("read pipeline file: %v", err)
	}
	if string(data) != custom {
		t.Error("Init should not overwrite an existing pipeline file")
	}
}

func TestInitUpdatesGitignore(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig()

	if err := Init(dir, cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatalf("read .gitignore: %v", err)
	}
	if !strings.Contains(string(data), cfg.LockFile) {
		t.Errorf("expected .gitignore to mention the lock file, got:\n%s", data)
	}
}

func TestUpdateGitignoreIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")

	if err := updateGitignore(path, "dvc.lock.lock"); err != nil {
		t.Fatalf("updateGitignore: %v", err)
	}
	if err := updateGitignore(path, "dvc.lock.lock"); err != nil {
		t.Fatalf("updateGitignore: %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Count(string(data), "dvc.lock.lock") != 1 {
		t.Errorf("expected a single entry, got:\n%s", data)
	}
}
