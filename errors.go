package main

import "fmt"

// Error kinds from spec.md §7, modeled as Go error values rather than an
// exception hierarchy: each is checked with errors.Is/errors.As at call
// sites and wrapped with %w so context survives without losing identity.

// ErrSpecMissing is returned when the pipeline file does not exist or
// cannot be read.
var ErrSpecMissing = fmt.Errorf("pipeline spec missing")

// ErrSpecMalformed is returned when the pipeline file cannot be parsed
// into valid stages (missing cmd, missing stages section, etc).
var ErrSpecMalformed = fmt.Errorf("pipeline spec malformed")

// ErrUnknownStage is returned by target filtering when a requested stage
// name is not in the DAG.
var ErrUnknownStage = fmt.Errorf("unknown stage")

// ErrCorruptManifest is returned when the lock file exists but cannot be
// read or parsed as YAML, or when a manifest fails to marshal on write.
var ErrCorruptManifest = fmt.Errorf("corrupt manifest")

// ErrLockContention is returned when the sidecar file lock could not be
// acquired within the bounded retry window.
var ErrLockContention = fmt.Errorf("lock contention")

// ErrRunnerUnavailable is returned when the shell itself cannot be
// invoked on the host — not when a stage's own command is missing, which
// is that command's own failure surfacing through the shell it ran under.
var ErrRunnerUnavailable = fmt.Errorf("runner unavailable")

// ErrHashUnavailable is returned by the Hasher when a declared path
// cannot be read; the freshness oracle treats this as "not fresh", the
// scheduler's post-success hashing treats it as a warning.
var ErrHashUnavailable = fmt.Errorf("hash unavailable")

// DuplicateStageError is raised during DAG construction when two stages
// share a name.
type DuplicateStageError struct {
	Name string
}

func (e *DuplicateStageError) Error() string {
	return fmt.Sprintf("duplicate stage %q", e.Name)
}

// OutputCollisionError is raised during DAG construction when two stages
// declare the same output path.
type OutputCollisionError struct {
	Path     string
	First    string
	Second   string
}

func (e *OutputCollisionError) Error() string {
	return fmt.Sprintf("output %q produced by both %q and %q", e.Path, e.First, e.Second)
}

// CyclicGraphError is raised by cycle detection, carrying the cycle as a
// closed path of stage names: names[0] == names[len(names)-1].
type CyclicGraphError struct {
	Names []string
}

func (e *CyclicGraphError) Error() string {
	return fmt.Sprintf("Circular dependency detected: %v", e.Names)
}

// PipelineFailedError aggregates the stage names that failed within a
// single scheduler level.
type PipelineFailedError struct {
	Stages []string
}

func (e *PipelineFailedError) Error() string {
	return fmt.Sprintf("stage(s) failed: %v", e.Stages)
}
