package main

import (
	"path/filepath"
	"testing"
)

func TestParsePipelineFileMissingFile(t *testing.T) {
	_, err := ParsePipelineFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing pipeline file")
	}
}

func TestParsePipelineFileNoStagesSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dvc.yaml")
	writeFile(t, path, "not_stages: {}\n")

	_, err := ParsePipelineFile(path)
	if err == nil {
		t.Fatal("expected an error when the stages section is missing")
	}
}

func TestParsePipelineFileMissingCmd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dvc.yaml")
	writeFile(t, path, "stages:\n  build:\n    deps: []\n    outs: []\n")

	_, err := ParsePipelineFile(path)
	if err == nil {
		t.Fatal("expected an error for a stage with no cmd")
	}
}

func TestParsePipelineFileCmdListJoinedWithAnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dvc.yaml")
	writeFile(t, path, `stages:
  build:
    cmd:
      - echo one
      - echo two
    deps: []
    outs: []
`)

	stages, err := ParsePipelineFile(path)
	if err != nil {
		t.Fatalf("ParsePipelineFile: %v", err)
	}
	if len(stages) != 1 {
		t.Fatalf("expected 1 stage, got %d", len(stages))
	}
	want := "echo one && echo two"
	if stages[0].Cmd != want {
		t.Errorf("got %q, want %q", stages[0].Cmd, want)
	}
}

func TestParsePipelineFileDepsAsGroupedMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dvc.yaml")
	writeFile(t, path, `stages:
  build:
    cmd: echo build
    deps:
      code:
        - main.go
        - util.go
      config:
        - config.yaml
    outs: []
`)

	stages, err := ParsePipelineFile(path)
	if err != nil {
		t.Fatalf("ParsePipelineFile: %v", err)
	}
	deps := stages[0].Deps
	if len(deps) != 3 {
		t.Fatalf("expected 3 flattened deps, got %v", deps)
	}
}

func TestParsePipelineFileStageOrderIsByName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dvc.yaml")
	writeFile(t, path, `stages:
  zeta:
    cmd: echo zeta
  alpha:
    cmd: echo alpha
`)

	stages, err := ParsePipelineFile(path)
	if err != nil {
		t.Fatalf("ParsePipelineFile: %v", err)
	}
	if stages[0].Name != "alpha" || stages[1].Name != "zeta" {
		t.Errorf("expected alphabetical stage order, got %s, %s", stages[0].Name, stages[1].Name)
	}
}
