package main

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// dagNode adapts a stage name to gonum's graph.Node interface.
type dagNode struct {
	id   int64
	name string
}

func (n dagNode) ID() int64 { return n.id }

// DAG holds the stage graph for one pipeline run: the stages themselves,
// the producer index used to resolve dependency edges, and the gonum
// graph used for cycle detection and layering.
//
// Edges run producer -> consumer (spec.md §3 GLOSSARY), i.e. from the
// stage that writes an output to the stage that declares it as a dep —
// matching the "topological order" direction gonum's topo package expects.
type DAG struct {
	stages    map[string]Stage
	producers map[string]string // output path -> producing stage name
	g         *simple.DirectedGraph
	nodeOf    map[string]dagNode
}

// NewDAG builds a DAG from a flat stage list, validating uniqueness of
// names and of output paths (spec.md §4.3 steps 1-2).
func NewDAG(stages []Stage) (*DAG, error) {
	d := &DAG{
		stages:    make(map[string]Stage, len(stages)),
		producers: make(map[string]string),
		g:         simple.NewDirectedGraph(),
		nodeOf:    make(map[string]dagNode, len(stages)),
	}

	for i, s := range stages {
		if _, dup := d.stages[s.Name]; dup {
			return nil, &DuplicateStageError{Name: s.Name}
		}
		d.stages[s.Name] = s
		n := dagNode{id: int64(i), name: s.Name}
		d.nodeOf[s.Name] = n
		d.g.AddNode(n)
	}

	for _, s := range stages {
		for _, out := range s.Outs {
			if prior, exists := d.producers[out]; exists {
				return nil, &OutputCollisionError{Path: out, First: prior, Second: s.Name}
			}
			d.producers[out] = s.Name
		}
	}

	for _, s := range stages {
		for _, dep := range s.Deps {
			producer, ok := d.producers[dep]
			if !ok {
				continue // external file dependency: no graph edge
			}
			if producer == s.Name {
				continue // a stage cannot depend on its own output
			}
			from := d.nodeOf[producer]
			to := d.nodeOf[s.Name]
			if !d.g.HasEdgeFromTo(from.ID(), to.ID()) {
				d.g.SetEdge(d.g.NewEdge(from, to))
			}
		}
	}

	return d, nil
}

// Stage returns the named stage and whether it exists in the DAG.
func (d *DAG) Stage(name string) (Stage, bool) {
	s, ok := d.stages[name]
	return s, ok
}

// StageNames returns every stage name in the DAG, unordered.
func (d *DAG) StageNames() []string {
	names := make([]string, 0, len(d.stages))
	for name := range d.stages {
		names = append(names, name)
	}
	return names
}

// Len reports how many stages the DAG holds.
func (d *DAG) Len() int { return len(d.stages) }

// CheckCycles performs cycle detection over the graph. On success it
// returns nil. On a cycle, it returns a *CyclicGraphError carrying the
// offending stage names as a closed path (spec.md §4.3).
func (d *DAG) CheckCycles() error {
	if _, err := topo.Sort(d.g); err != nil {
		unorderable, ok := err.(topo.Unorderable)
		if !ok || len(unorderable) == 0 {
			return fmt.Errorf("%w: %v", ErrSpecMalformed, err)
		}
		return &CyclicGraphError{Names: d.closedCyclePath(unorderable[0])}
	}
	return nil
}

// closedCyclePath converts one strongly-connected component returned by
// topo.Unorderable into a closed name path name[0] -> ... -> name[0], by
// walking real graph edges within the component (each node in an SCC of
// size > 1 has at least one successor inside the component). Successor
// choice among ties is by lowest name, for deterministic error messages.
// The walk stops at the first node it revisits, and the path returned
// starts and ends at that node.
func (d *DAG) closedCyclePath(component []graph.Node) []string {
	inComponent := make(map[int64]dagNode, len(component))
	for _, n := range component {
		dn := n.(dagNode)
		inComponent[dn.ID()] = dn
	}

	start := component[0].(dagNode)
	if len(component) == 1 {
		return []string{start.name, start.name}
	}

	path := []string{start.name}
	seenAt := map[int64]int{start.ID(): 0}
	cur := start
	for {
		next, ok := d.lowestNameSuccessorIn(cur, inComponent)
		if !ok {
			// SCC guarantees a successor inside the component; this
			// branch is unreachable for a genuine cycle.
			path = append(path, start.name)
			return path
		}
		path = append(path, next.name)
		if i, seen := seenAt[next.ID()]; seen {
			return path[i:]
		}
		seenAt[next.ID()] = len(path) - 1
		cur = next
	}
}

// lowestNameSuccessorIn returns from's graph successor with the
// lexicographically lowest name among those also present in component.
func (d *DAG) lowestNameSuccessorIn(from dagNode, component map[int64]dagNode) (dagNode, bool) {
	best := dagNode{}
	found := false
	to := d.g.From(from.ID())
	for to.Next() {
		succ, ok := component[to.Node().ID()]
		if !ok {
			continue
		}
		if !found || succ.name < best.name {
			best = succ
			found = true
		}
	}
	return best, found
}

// Layers returns the layered topological order from spec.md §4.3: level k
// holds every stage whose longest path from a root equals k. Stages
// within a level are sorted by name for deterministic logs and tests.
func (d *DAG) Layers() ([][]string, error) {
	if err := d.CheckCycles(); err != nil {
		return nil, err
	}

	depth := make(map[int64]int, len(d.stages))
	order := graph.NodesOf(d.g.Nodes())
	sort.Slice(order, func(i, j int) bool { return order[i].ID() < order[j].ID() })

	var visit func(n graph.Node) int
	visiting := make(map[int64]bool)
	visit = func(n graph.Node) int {
		id := n.ID()
		if lvl, ok := depth[id]; ok {
			return lvl
		}
		visiting[id] = true
		maxParent := -1
		to := d.g.To(id)
		for to.Next() {
			parent := to.Node()
			lvl := visit(parent)
			if lvl > maxParent {
				maxParent = lvl
			}
		}
		lvl := maxParent + 1
		depth[id] = lvl
		delete(visiting, id)
		return lvl
	}

	maxLevel := -1
	for _, n := range order {
		lvl := visit(n)
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	levels := make([][]string, maxLevel+1)
	for id, lvl := range depth {
		name := d.nameByID(id)
		levels[lvl] = append(levels[lvl], name)
	}
	for _, lvl := range levels {
		sort.Strings(lvl)
	}
	return levels, nil
}

func (d *DAG) nameByID(id int64) string {
	for name, n := range d.nodeOf {
		if n.ID() == id {
			return name
		}
	}
	return ""
}

// FilterToTargets returns a sub-DAG containing the transitive ancestor
// closure (dependencies-of) of the requested stage names, inclusive of
// the targets themselves (spec.md §4.3).
func (d *DAG) FilterToTargets(targets []string) (*DAG, error) {
	for _, t := range targets {
		if _, ok := d.stages[t]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownStage, t)
		}
	}

	keep := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if keep[name] {
			return
		}
		keep[name] = true
		n := d.nodeOf[name]
		from := d.g.To(n.ID())
		for from.Next() {
			parent := from.Node().(dagNode)
			visit(parent.name)
		}
	}
	for _, t := range targets {
		visit(t)
	}

	var subset []Stage
	for name := range keep {
		subset = append(subset, d.stages[name])
	}
	sort.Slice(subset, func(i, j int) bool { return subset[i].Name < subset[j].Name })
	return NewDAG(subset)
}
