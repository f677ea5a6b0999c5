// dvcrun — content-hash-cached, dependency-aware pipeline runner.
//
// Reads a dvc.yaml-shaped pipeline file describing named stages (a
// command plus declared dependency and output paths), builds the
// dependency DAG between them, and runs only the stages whose declared
// inputs or outputs have actually changed since their last recorded run
// — in parallel, layer by layer, bounded by a worker pool.
//
// Usage:
//
//	dvcrun                  Run every stage in the pipeline
//	dvcrun build test       Run specific stages (and their dependencies)
//	dvcrun init             Scaffold a dvc.yaml and .dvcrun.toml
//	dvcrun --dry-run        Print the layered execution plan without running it
//	dvcrun --force          Run targets even if they are already fresh
//	dvcrun --jobs N         Bound the worker pool to N concurrent stages
//	dvcrun --json           Emit a machine-readable JSON report
//	dvcrun --dot            Print the dependency graph in GraphViz DOT format
//	dvcrun --mermaid        Print the dependency graph as a Mermaid diagram
//	dvcrun --serve          Run as an MCP server over stdio
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

var version = "0.1.0"

func main() {
	var (
		flagDryRun  = flag.Bool("dry-run", false, "Print the layered execution plan without executing anything or checking freshness")
		flagForce   = flag.Bool("force", false, "Run targets even if they are already fresh")
		flagJobs    = flag.Int("jobs", 0, "Bound the worker pool (default: config jobs, falls back to NumCPU)")
		flagFile    = flag.String("file", "", "Path to the pipeline file (default: config pipeline_file)")
		flagLock    = flag.String("lock", "", "Path to the lock/manifest file (default: config lock_file)")
		flagJSON    = flag.Bool("json", false, "Emit a machine-readable JSON report")
		flagDot     = flag.Bool("dot", false, "Print the dependency graph in GraphViz DOT format and exit")
		flagMermaid = flag.Bool("mermaid", false, "Print the dependency graph as a Mermaid diagram and exit")
		flagPlan    = flag.Bool("plan", false, "Print the layered execution plan and exit")
		flagServe   = flag.Bool("serve", false, "Run as an MCP server over stdio")
		flagVersion = flag.Bool("version", false, "Print version")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "dvcrun v%s — content-hash-cached, dependency-aware pipeline runner\n\n", version)
		fmt.Fprintf(os.Stderr, "Usage: dvcrun [flags] [stages...]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  init      Scaffold a dvc.yaml and .dvcrun.toml in the current directory\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *flagVersion {
		fmt.Printf("dvcrun v%s\n", version)
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		fatalf("Cannot get working directory: %v", err)
	}

	cfg, err := LoadConfig(cwd)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	if *flagJobs > 0 {
		cfg.Jobs = *flagJobs
	}
	if *flagFile != "" {
		cfg.PipelineFile = *flagFile
	}
	if *flagLock != "" {
		cfg.LockFile = *flagLock
	}

	args := flag.Args()
	if len(args) > 0 && args[0] == "init" {
		if err := Init(cwd, cfg); err != nil {
			fatalf("init failed: %v", err)
		}
		return
	}

	if *flagServe {
		if err := cmdServe(cwd); err != nil {
			fatalf("serve failed: %v", err)
		}
		return
	}

	pipelinePath := pipelineFilePath(cwd, cfg)
	stages, err := ParsePipelineFile(pipelinePath)
	if err != nil {
		fatalf("%v", err)
	}

	dag, err := NewDAG(stages)
	if err != nil {
		fatalf("%v", err)
	}
	if err := dag.CheckCycles(); err != nil {
		fatalf("%v", err)
	}

	if *flagDot {
		fmt.Print(Visualizer{DAG: dag}.ToDOT())
		return
	}
	if *flagMermaid {
		fmt.Print(Visualizer{DAG: dag}.ToMermaid())
		return
	}
	if *flagPlan {
		text, err := Visualizer{DAG: dag}.PrintLevels()
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Print(text)
		return
	}

	lock := NewLockStore(lockFilePath(cwd, cfg))
	oracle := FreshnessOracle{}

	targets := args
	for _, t := range targets {
		if _, ok := dag.Stage(t); !ok {
			fatalf("unknown stage %q (run without args to see all stages, or dvcrun --plan)", t)
		}
	}

	if *flagDryRun {
		planDAG := dag
		if len(targets) > 0 {
			planDAG, err = dag.FilterToTargets(targets)
			if err != nil {
				fatalf("%v", err)
			}
		}
		report, err := BuildDryRunReport(planDAG, cwd)
		if err != nil {
			fatalf("%v", err)
		}
		if *flagJSON {
			PrintDryRunJSON(report)
		} else {
			PrintDryRunHuman(report)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := NewScheduler(dag, lock, cwd)
	sched.Jobs = cfg.Jobs
	sched.Force = *flagForce
	sched.Oracle = oracle

	if !*flagJSON {
		printf("Running pipeline...\n\n")
	}

	results, runErr := sched.Run(ctx, targets)

	if *flagJSON {
		printJSONReport(results, runErr)
	} else {
		printHumanReport(results, runErr)
	}

	if ctx.Err() != nil {
		os.Exit(130)
	}
	if runErr != nil {
		os.Exit(1)
	}
}

func pipelineFilePath(root string, cfg *Config) string {
	if filepath.IsAbs(cfg.PipelineFile) {
		return cfg.PipelineFile
	}
	return filepath.Join(root, cfg.PipelineFile)
}

func lockFilePath(root string, cfg *Config) string {
	if filepath.IsAbs(cfg.LockFile) {
		return cfg.LockFile
	}
	return filepath.Join(root, cfg.LockFile)
}

type reportJSON struct {
	Passed  int             `json:"passed"`
	Failed  int             `json:"failed"`
	Skipped int             `json:"skipped"`
	Error   string          `json:"error,omitempty"`
	Results []mcpResultJSON `json:"results"`
}

func printJSONReport(results []StageResult, runErr error) {
	report := reportJSON{Results: resultsToJSON(results)}
	for _, r := range results {
		switch {
		case r.Skipped:
			report.Skipped++
		case r.Err != nil:
			report.Failed++
		default:
			report.Passed++
		}
	}
	if runErr != nil {
		report.Error = runErr.Error()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}

func printHumanReport(results []StageResult, runErr error) {
	passed, failed, skipped := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
			printf("  %-20s [SKIPPED - %s]\n", r.Stage, r.Reason)
		case r.Err != nil:
			failed++
			errorf("  %-20s [FAILED - %s]\n", r.Stage, r.Reason)
			if r.Stderr != "" {
				printf("%s\n", r.Stderr)
			}
		default:
			passed++
			successf("  %-20s [OK - %s]\n", r.Stage, r.Reason)
		}
	}

	printf("\nSummary: %d passed, %d failed, %d skipped\n", passed, failed, skipped)
	if runErr != nil {
		errorf("%v\n", runErr)
	}
}

// Printing helpers, carried verbatim from the teacher's main.go: plain
// ANSI-colored fmt wrappers, no ecosystem logging library in play here.
func printf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format, args...)
}

func successf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, "\033[32m"+format+"\033[0m", args...)
}

func errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m", args...)
}

func warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[33m"+format+"\033[0m", args...)
}

func fatalf(format string, args ...interface{}) {
	errorf(format+"\n", args...)
	os.Exit(1)
}
