package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio"
	"gopkg.in/yaml.v3"
)

// lockRetryInterval and lockRetryTimeout bound how long LockStore waits
// to acquire the sidecar file lock before giving up with
// ErrLockContention (spec.md §4.2, §5).
const (
	lockRetryInterval = 50 * time.Millisecond
	lockRetryTimeout  = 10 * time.Second
)

// LockStore is the cross-process guardian of one manifest file: a
// gofrs/flock sidecar lock serializes readers and writers across
// processes, and every write goes through renameio so concurrent readers
// never observe a torn file. Grounded on
// original_source/dvc_run/lock.py's FileLock + atomic-rename protocol.
type LockStore struct {
	ManifestPath string
	LockPath     string
}

// NewLockStore returns a LockStore for manifestPath, using
// manifestPath+".lock" as the sidecar lock file.
func NewLockStore(manifestPath string) *LockStore {
	return &LockStore{
		ManifestPath: manifestPath,
		LockPath:     manifestPath + ".lock",
	}
}

// Read loads the current manifest under a shared lock. A missing
// manifest file yields an empty manifest, not an error — there is
// nothing to be fresh against yet. A present-but-unparseable file is
// ErrCorruptManifest.
func (s *LockStore) Read() (Manifest, error) {
	fl := flock.New(s.LockPath)
	locked, err := s.tryLockRLock(fl)
	if err != nil {
		return Manifest{}, err
	}
	if !locked {
		return Manifest{}, ErrLockContention
	}
	defer fl.Unlock()

	return s.readUnlocked()
}

func (s *LockStore) readUnlocked() (Manifest, error) {
	data, err := os.ReadFile(s.ManifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return Manifest{}, fmt.Errorf("%w: %v", ErrCorruptManifest, err)
	}
	if len(data) == 0 {
		return NewManifest(), nil
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrCorruptManifest, err)
	}
	if m.Stages == nil {
		m.Stages = map[string]StageState{}
	}
	if m.Schema == "" {
		m.Schema = schemaVersion
	}
	return m, nil
}

// Update records stage's new state into the manifest under an exclusive
// lock, and atomically rewrites the manifest file. The read-modify-write
// happens entirely within the locked section so concurrent updates to
// different stages never clobber one another (spec.md §4.2, §5).
func (s *LockStore) Update(stageName string, state StageState) error {
	fl := flock.New(s.LockPath)
	locked, err := s.tryLock(fl)
	if err != nil {
		return err
	}
	if !locked {
		return ErrLockContention
	}
	defer fl.Unlock()

	m, err := s.readUnlocked()
	if err != nil {
		return err
	}
	m.Stages[stageName] = state

	return s.writeAtomic(m)
}

// writeAtomic serializes m as YAML with deterministic ordering throughout
// (yaml.v3 sorts map keys on marshal, and StageState.MarshalYAML path-sorts
// its deps/outs sequences) and installs it via renameio so readers never
// see a partial write.
func (s *LockStore) writeAtomic(m Manifest) error {
	out, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptManifest, err)
	}
	t, err := renameio.TempFile("", s.ManifestPath)
	if err != nil {
		return fmt.Errorf("write manifest: %v", err)
	}
	defer t.Cleanup()

	if _, err := t.Write(out); err != nil {
		return fmt.Errorf("write manifest: %v", err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("write manifest: %v", err)
	}
	return nil
}

func (s *LockStore) tryLock(fl *flock.Flock) (bool, error) {
	deadline := time.Now().Add(lockRetryTimeout)
	for {
		locked, err := fl.TryLock()
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrLockContention, err)
		}
		if locked {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(lockRetryInterval)
	}
}

func (s *LockStore) tryLockRLock(fl *flock.Flock) (bool, error) {
	deadline := time.Now().Add(lockRetryTimeout)
	for {
		locked, err := fl.TryRLock()
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrLockContention, err)
		}
		if locked {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(lockRetryInterval)
	}
}
