package main

import (
	"fmt"
	"os"
)

// FreshnessOracle decides whether a stage needs to re-run, by comparing
// its current declared command and the live hashes of its deps/outs
// against the last recorded StageState in the manifest. Grounded on
// original_source/dvc_run/freshness.py's is_stage_fresh/get_freshness_reason
// ordered-predicate design: the first predicate that fails to hold
// determines the reason, checked in a fixed order so results are
// reproducible and explainable (spec.md §4.4).
type FreshnessOracle struct {
	Hasher Hasher
}

// IsFresh reports whether stage can be skipped given its previously
// recorded state. A nil recorded state means the stage has never run.
func (o FreshnessOracle) IsFresh(stage Stage, recorded *StageState) bool {
	return o.Reason(stage, recorded) == "up-to-date"
}

// Reason returns "up-to-date" when the stage is fresh, or a short
// human-readable explanation of why it is not (spec.md §4.4). Checks run
// in order: never run before, command changed, each dep in declaration
// order, each out in declaration order. The first failing check wins.
func (o FreshnessOracle) Reason(stage Stage, recorded *StageState) string {
	if recorded == nil {
		return "never run before"
	}
	if recorded.Cmd != stage.Cmd {
		return "command changed"
	}
	for _, dep := range stage.Deps {
		if reason := o.checkPath("dependency", dep, recorded.Deps); reason != "" {
			return reason
		}
	}
	for _, out := range stage.Outs {
		if reason := o.checkPath("output", out, recorded.Outs); reason != "" {
			return reason
		}
	}
	return "up-to-date"
}

// checkPath compares one declared path's live hash against its recorded
// FileInfo, distinguishing three ways a path can fail to be fresh: it was
// never recorded before ("new"), it was recorded but no longer exists on
// disk ("missing"), or it exists but hashes differently ("changed"). A
// read failure for any other reason is its own "error reading" verdict —
// matching freshness.py's rule that an unreadable file is never silently
// treated as fresh.
func (o FreshnessOracle) checkPath(kind, path string, recorded map[string]FileInfo) string {
	info, ok := recorded[path]
	if !ok {
		return fmt.Sprintf("new %s: %s", kind, path)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("missing %s: %s", kind, path)
		}
		return fmt.Sprintf("error reading %s: %v", path, err)
	}
	digest, err := o.Hasher.Digest(path)
	if err != nil {
		return fmt.Sprintf("error reading %s: %v", path, err)
	}
	if digest != info.MD5 {
		return fmt.Sprintf("%s changed: %s", kind, path)
	}
	return ""
}
