package main

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stage is a logical unit of pipeline work: a command plus the paths it
// declares as inputs and outputs. Stages are immutable once constructed —
// callers that need a modified command (e.g. the CLI's --fix path in the
// teacher) must build a new Stage rather than mutate one in place.
type Stage struct {
	Name string
	Cmd  string
	Deps []string
	Outs []string
	Desc string
}

// NewStage joins a possibly multi-command sequence into the single shell
// string the rest of the engine operates on, exactly as spec.md §3
// describes ("a user-supplied ordered sequence is flattened into a single
// string by joining with the shell && operator").
func NewStage(name string, cmds []string, deps, outs []string, desc string) Stage {
	return Stage{
		Name: name,
		Cmd:  strings.Join(cmds, " && "),
		Deps: append([]string(nil), deps...),
		Outs: append([]string(nil), outs...),
		Desc: desc,
	}
}

// FileInfo is one manifest entry: a path, its MD5 digest, and its size.
// Size is advisory — round-tripped through the lock file but never
// consulted by the freshness check (spec.md §3).
type FileInfo struct {
	Path string `yaml:"path"`
	MD5  string `yaml:"md5"`
	Size int64  `yaml:"size"`
}

// StageState is the manifest's recorded memory of one stage's last
// successful run: the command that ran, and the hash of every declared
// dependency and output at that time. In memory this is keyed by path for
// O(1) freshness lookups; on disk (spec.md §4.2 step 3, §6.2) it round-trips
// through stageStateYAML as a path-sorted sequence, the shape DVC-produced
// manifests use, with an empty deps/outs list omitted entirely.
type StageState struct {
	Cmd  string
	Deps map[string]FileInfo
	Outs map[string]FileInfo
}

// stageStateYAML is StageState's on-disk shape.
type stageStateYAML struct {
	Cmd  string     `yaml:"cmd"`
	Deps []FileInfo `yaml:"deps,omitempty"`
	Outs []FileInfo `yaml:"outs,omitempty"`
}

// MarshalYAML renders Deps/Outs as path-sorted sequences instead of maps,
// and drops the key entirely when there are none.
func (s StageState) MarshalYAML() (interface{}, error) {
	return stageStateYAML{
		Cmd:  s.Cmd,
		Deps: sortedFileInfos(s.Deps),
		Outs: sortedFileInfos(s.Outs),
	}, nil
}

// UnmarshalYAML reconstructs the path-keyed maps from the on-disk sequence.
func (s *StageState) UnmarshalYAML(value *yaml.Node) error {
	var raw stageStateYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}
	s.Cmd = raw.Cmd
	s.Deps = fileInfoMap(raw.Deps)
	s.Outs = fileInfoMap(raw.Outs)
	return nil
}

func sortedFileInfos(m map[string]FileInfo) []FileInfo {
	if len(m) == 0 {
		return nil
	}
	out := make([]FileInfo, 0, len(m))
	for _, fi := range m {
		out = append(out, fi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func fileInfoMap(list []FileInfo) map[string]FileInfo {
	m := make(map[string]FileInfo, len(list))
	for _, fi := range list {
		m[fi.Path] = fi
	}
	return m
}

// Manifest is the full on-disk lock file: a schema tag plus one
// StageState per stage that has ever completed.
type Manifest struct {
	Schema string
	Stages map[string]StageState
}

// NewManifest returns an empty manifest at the current schema version.
func NewManifest() Manifest {
	return Manifest{Schema: schemaVersion, Stages: map[string]StageState{}}
}

const schemaVersion = "2.0"
