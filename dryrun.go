package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// DryRunStage describes one stage's place in the execution plan, without
// any judgment about whether it would actually run.
type DryRunStage struct {
	Name    string `json:"name"`
	Layer   int    `json:"layer"`
	Command string `json:"command"`
}

// DryRunReport is the full dry-run output, adapted from the teacher's
// flat-cache DryRunReport to the layered DAG model: stages are grouped by
// the layer they would execute in so the report also communicates planned
// parallelism (spec.md §6.5 --dry-run, §4.5 dry-run mode).
type DryRunReport struct {
	DryRun bool          `json:"dry_run"`
	Dir    string        `json:"dir"`
	Stages []DryRunStage `json:"stages"`
}

// BuildDryRunReport walks dag's layers and reports each stage's place in
// the plan. Per spec.md §4.5, dry-run mode computes only the execution
// plan: it never reads the lock store and never consults the freshness
// oracle, so it carries no verdict on whether a stage would actually run.
func BuildDryRunReport(dag *DAG, dir string) (DryRunReport, error) {
	layers, err := dag.Layers()
	if err != nil {
		return DryRunReport{}, err
	}

	report := DryRunReport{DryRun: true, Dir: dir}
	for level, names := range layers {
		for _, name := range names {
			stage, _ := dag.Stage(name)
			report.Stages = append(report.Stages, DryRunStage{
				Name:    name,
				Layer:   level,
				Command: stage.Cmd,
			})
		}
	}
	return report, nil
}

// PrintDryRunHuman prints a human-readable dry-run report, grouped by
// execution layer so the reader can see planned parallelism at a glance.
func PrintDryRunHuman(report DryRunReport) {
	fmt.Println("Dry run — no commands will be executed")
	fmt.Println()
	fmt.Printf("  Dir: %s\n", report.Dir)
	fmt.Println()

	curLayer := -1
	for _, s := range report.Stages {
		if s.Layer != curLayer {
			curLayer = s.Layer
			fmt.Printf("  Layer %d:\n", curLayer)
		}
		fmt.Printf("    %-20s %s\n", s.Name, s.Command)
	}

	fmt.Println()
	fmt.Printf("  %d stage(s) in %d layer(s)\n", len(report.Stages), curLayer+1)
}

// PrintDryRunJSON prints the dry-run report as JSON (spec.md §6.5 --json).
func PrintDryRunJSON(report DryRunReport) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}
