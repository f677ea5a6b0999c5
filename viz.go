package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/emicklei/dot"
)

// Visualizer renders a DAG for human inspection, in the two formats
// spec.md §6.5 exposes (--dot, --mermaid). Grounded on
// original_source/dvc_run/viz.py's DAGVisualizer, with the DOT rendering
// delegated to github.com/emicklei/dot instead of hand-built strings.
type Visualizer struct {
	DAG *DAG
}

// ToDOT renders the graph in GraphViz DOT format, producer -> consumer
// edges, left-to-right layout.
func (v Visualizer) ToDOT() string {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "LR")

	names := v.DAG.StageNames()
	sort.Strings(names)

	nodes := make(map[string]dot.Node, len(names))
	for _, name := range names {
		n := g.Node(name)
		n.Attr("shape", "box")
		n.Attr("style", "rounded")
		nodes[name] = n
	}

	for _, name := range names {
		stage, _ := v.DAG.Stage(name)
		for _, dep := range stage.Deps {
			producer, ok := v.DAG.producers[dep]
			if !ok || producer == name {
				continue
			}
			g.Edge(nodes[producer], nodes[name])
		}
	}

	return g.String()
}

// ToMermaid renders the graph as a Mermaid flowchart definition.
func (v Visualizer) ToMermaid() string {
	var b strings.Builder
	b.WriteString("graph LR\n")

	names := v.DAG.StageNames()
	sort.Strings(names)

	for _, name := range names {
		stage, _ := v.DAG.Stage(name)
		var deps []string
		for _, dep := range stage.Deps {
			if producer, ok := v.DAG.producers[dep]; ok && producer != name {
				deps = append(deps, producer)
			}
		}
		sort.Strings(deps)
		if len(deps) == 0 {
			fmt.Fprintf(&b, "  %s\n", name)
			continue
		}
		for _, dep := range deps {
			fmt.Fprintf(&b, "  %s --> %s\n", dep, name)
		}
	}

	return b.String()
}

// PrintLevels prints the layered execution plan in text form, the Go
// counterpart of viz.py's print_levels.
func (v Visualizer) PrintLevels() (string, error) {
	layers, err := v.DAG.Layers()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Execution plan (%d levels, %d stages):\n", len(layers), v.DAG.Len())
	for i, level := range layers {
		fmt.Fprintf(&b, "  Level %d: %s\n", i+1, strings.Join(level, ", "))
	}
	return b.String(), nil
}
