package main

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestLockStoreReadMissingManifestIsEmpty(t *testing.T) {
	dir := t.TempDir()
	store := NewLockStore(filepath.Join(dir, "dvc.lock"))

	m, err := store.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(m.Stages) != 0 {
		t.Errorf("expected empty manifest, got %v", m.Stages)
	}
	if m.Schema != schemaVersion {
		t.Errorf("expected schema %q, got %q", schemaVersion, m.Schema)
	}
}

func TestLockStoreUpdateThenReadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := NewLockStore(filepath.Join(dir, "dvc.lock"))

	state := StageState{
		Cmd:  "echo hi",
		Deps: map[string]FileInfo{"dep.txt": {Path: "dep.txt", MD5: "abc", Size: 3}},
		Outs: map[string]FileInfo{"out.txt": {Path: "out.txt", MD5: "def", Size: 4}},
	}
	if err := store.Update("build", state); err != nil {
		t.Fatalf("Update: %v", err)
	}

	m, err := store.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got, ok := m.Stages["build"]
	if !ok {
		t.Fatal("expected stage \"build\" to be recorded")
	}
	if got.Cmd != state.Cmd {
		t.Errorf("Cmd: got %q, want %q", got.Cmd, state.Cmd)
	}
	if got.Deps["dep.txt"].MD5 != "abc" {
		t.Errorf("unexpected dep entry: %+v", got.Deps["dep.txt"])
	}
}

func TestLockStoreDepsOutsRoundTripAsSortedSequence(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "dvc.lock")
	store := NewLockStore(manifestPath)

	state := StageState{
		Cmd: "echo hi",
		Deps: map[string]FileInfo{
			"b.txt": {Path: "b.txt", MD5: "bbb", Size: 2},
			"a.txt": {Path: "a.txt", MD5: "aaa", Size: 1},
		},
		Outs: map[string]FileInfo{},
	}
	if err := store.Update("build", state); err != nil {
		t.Fatalf("Update: %v", err)
	}

	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	text := string(raw)
	if strings.Contains(text, "outs:") {
		t.Errorf("expected empty outs to be omitted from the manifest, got:\n%s", text)
	}
	if strings.Contains(text, "deps:\n    a.txt:") || strings.Contains(text, "deps:\n      a.txt:") {
		t.Errorf("expected deps as a sequence, not a path-keyed mapping, got:\n%s", text)
	}
	aIdx := strings.Index(text, "a.txt")
	bIdx := strings.Index(text, "b.txt")
	if aIdx == -1 || bIdx == -1 || aIdx > bIdx {
		t.Errorf("expected deps sorted by path (a.txt before b.txt), got:\n%s", text)
	}

	m, err := store.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got := m.Stages["build"]
	if got.Deps["a.txt"].MD5 != "aaa" || got.Deps["b.txt"].MD5 != "bbb" {
		t.Errorf("unexpected round-tripped deps: %+v", got.Deps)
	}
	if len(got.Outs) != 0 {
		t.Errorf("expected no outs after round-trip, got %+v", got.Outs)
	}
}

func TestLockStoreUpdatePreservesOtherStages(t *testing.T) {
	dir := t.TempDir()
	store := NewLockStore(filepath.Join(dir, "dvc.lock"))

	if err := store.Update("a", StageState{Cmd: "echo a", Deps: map[string]FileInfo{}, Outs: map[string]FileInfo{}}); err != nil {
		t.Fatalf("Update a: %v", err)
	}
	if err := store.Update("b", StageState{Cmd: "echo b", Deps: map[string]FileInfo{}, Outs: map[string]FileInfo{}}); err != nil {
		t.Fatalf("Update b: %v", err)
	}

	m, err := store.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(m.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(m.Stages))
	}
}

func TestLockStoreConcurrentUpdatesAllSurvive(t *testing.T) {
	dir := t.TempDir()
	store := NewLockStore(filepath.Join(dir, "dvc.lock"))

	var wg sync.WaitGroup
	names := []string{"a", "b", "c", "d", "e"}
	for _, name := range names {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			_ = store.Update(n, StageState{Cmd: "echo " + n, Deps: map[string]FileInfo{}, Outs: map[string]FileInfo{}})
		}(name)
	}
	wg.Wait()

	m, err := store.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(m.Stages) != len(names) {
		t.Errorf("expected %d stages to survive concurrent updates, got %d", len(names), len(m.Stages))
	}
}
