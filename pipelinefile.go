package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawPipelineFile mirrors the on-disk shape of a dvc.yaml-like pipeline
// spec: a top-level "stages" map, each entry permitting cmd as either a
// single string or a list of strings, and deps/outs as either a flat
// list or a map of named groups whose values are lists (both forms seen
// in the corpus; original_source/dvc_run/parser.py normalizes both).
type rawPipelineFile struct {
	Stages map[string]rawStage `yaml:"stages"`
}

type rawStage struct {
	Cmd  yaml.Node `yaml:"cmd"`
	Deps yaml.Node `yaml:"deps"`
	Outs yaml.Node `yaml:"outs"`
	Desc string    `yaml:"desc"`
}

// ParsePipelineFile reads and normalizes a pipeline spec file into a flat
// []Stage, sorted by stage name. Grounded on
// original_source/dvc_run/parser.py's DVCYamlParser: a cmd given as a
// list is joined with "&&"; deps/outs given as a map-of-lists are
// flattened to their union, de-duplicated, in first-seen order.
func ParsePipelineFile(path string) ([]Stage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSpecMissing, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrSpecMissing, path, err)
	}

	var raw rawPipelineFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpecMalformed, path, err)
	}
	if raw.Stages == nil {
		return nil, fmt.Errorf("%w: %s: no \"stages\" section", ErrSpecMalformed, path)
	}

	names := make([]string, 0, len(raw.Stages))
	for name := range raw.Stages {
		names = append(names, name)
	}
	sort.Strings(names)

	stages := make([]Stage, 0, len(names))
	for _, name := range names {
		rs := raw.Stages[name]
		cmds, err := normalizeStringOrList(&rs.Cmd)
		if err != nil {
			return nil, fmt.Errorf("%w: stage %q: cmd: %v", ErrSpecMalformed, name, err)
		}
		if len(cmds) == 0 {
			return nil, fmt.Errorf("%w: stage %q: missing cmd", ErrSpecMalformed, name)
		}

		deps, err := normalizeListOrGroupedMap(&rs.Deps)
		if err != nil {
			return nil, fmt.Errorf("%w: stage %q: deps: %v", ErrSpecMalformed, name, err)
		}
		outs, err := normalizeListOrGroupedMap(&rs.Outs)
		if err != nil {
			return nil, fmt.Errorf("%w: stage %q: outs: %v", ErrSpecMalformed, name, err)
		}

		stages = append(stages, NewStage(name, cmds, deps, outs, rs.Desc))
	}

	return stages, nil
}

// normalizeStringOrList decodes a YAML node that is either a scalar
// string or a sequence of strings into a string slice. An empty/zero
// node (field absent) yields an empty, non-error slice.
func normalizeStringOrList(n *yaml.Node) ([]string, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		var s string
		if err := n.Decode(&s); err != nil {
			return nil, err
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return []string{s}, nil
	case yaml.SequenceNode:
		var list []string
		if err := n.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("expected a string or a list of strings")
	}
}

// normalizeListOrGroupedMap decodes a YAML node that is either a flat
// sequence of path strings, or a map of group-name to sequence of path
// strings, into the flattened union of paths in first-seen order with
// duplicates removed.
func normalizeListOrGroupedMap(n *yaml.Node) ([]string, error) {
	if n.Kind == 0 {
		return nil, nil
	}

	var flat []string
	switch n.Kind {
	case yaml.SequenceNode:
		if err := n.Decode(&flat); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var grouped map[string][]string
		if err := n.Decode(&grouped); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(grouped))
		for k := range grouped {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flat = append(flat, grouped[k]...)
		}
	default:
		return nil, fmt.Errorf("expected a list or a map of lists")
	}

	seen := make(map[string]bool, len(flat))
	out := make([]string, 0, len(flat))
	for _, p := range flat {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}
