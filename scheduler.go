package main

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// StageResult is the outcome of considering (and possibly running) one
// stage, reported up from the Scheduler to the CLI/MCP surfaces.
type StageResult struct {
	Stage   string
	Ran     bool   // false if skipped as already fresh, or in a dry run
	Skipped bool   // true if fresh and not forced
	Reason  string // freshness reason; empty in a dry run, which never consults the oracle
	Stdout  string
	Stderr  string
	Err     error
}

// Scheduler executes a DAG's layers in order, running every stage within
// a layer concurrently up to a bounded worker pool, and waiting on the
// full layer (a "level barrier") before advancing — so a stage never
// starts before all of its dependencies across every earlier layer have
// committed their manifest state. Grounded on distr1-distri's
// internal/batch scheduler.run() (errgroup + bounded concurrency) and the
// original_source/dvc_run/executor.py ParallelExecutor's layer-by-layer
// ThreadPoolExecutor design (spec.md §4.5, §5).
type Scheduler struct {
	DAG       *DAG
	Lock      *LockStore
	Oracle    FreshnessOracle
	Runner    Runner
	Dir       string
	Jobs      int  // bounded worker count; <=0 means runtime.NumCPU()
	Force     bool // skip freshness checks, always run
	DryRun    bool // report the plan only; never reads the lock store or consults the oracle (spec.md §4.5)
}

// NewScheduler returns a Scheduler with sensible defaults for Jobs and
// Runner when the caller leaves them zero-valued.
func NewScheduler(dag *DAG, lock *LockStore, dir string) *Scheduler {
	return &Scheduler{
		DAG:    dag,
		Lock:   lock,
		Oracle: FreshnessOracle{},
		Runner: NewShellRunner(),
		Dir:    dir,
	}
}

// Run executes every stage in the scheduler's DAG, layer by layer, and
// returns the full set of per-stage results in layer order, sorted by
// stage name within each layer. It
// returns a *PipelineFailedError if any stage in any layer failed; later
// layers are never started once a layer records a failure, but every
// stage already running within the failing layer is allowed to finish
// (spec.md §5: "siblings in a failing layer are never cancelled
// mid-flight").
func (s *Scheduler) Run(ctx context.Context, targets []string) ([]StageResult, error) {
	dag := s.DAG
	if len(targets) > 0 {
		filtered, err := dag.FilterToTargets(targets)
		if err != nil {
			return nil, err
		}
		dag = filtered
	}

	layers, err := dag.Layers()
	if err != nil {
		return nil, err
	}

	jobs := s.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	var all []StageResult
	var failedStages []string

	for _, layer := range layers {
		if len(layer) == 0 {
			continue
		}
		results, err := s.runLayer(ctx, dag, layer, jobs)
		all = append(all, results...)
		for _, r := range results {
			if r.Err != nil {
				failedStages = append(failedStages, r.Stage)
			}
		}
		if err != nil || len(failedStages) > 0 {
			break
		}
	}

	if len(failedStages) > 0 {
		sort.Strings(failedStages)
		return all, &PipelineFailedError{Stages: failedStages}
	}
	return all, nil
}

// runLayer runs every stage name in layer concurrently, inline (no
// goroutine) when the layer is a singleton, matching the teacher's
// resolveOrder/RunParallel distinction between chained and parallel
// stages.
func (s *Scheduler) runLayer(ctx context.Context, dag *DAG, layer []string, jobs int) ([]StageResult, error) {
	if len(layer) == 1 {
		r := s.runOne(ctx, dag, layer[0])
		return []StageResult{r}, nil
	}

	results := make([]StageResult, len(layer))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, jobs)
	var mu sync.Mutex

	for i, name := range layer {
		i, name := i, name
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			r := s.runOne(gctx, dag, name)
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil // stage failures are carried in StageResult, not the group error
		})
	}
	_ = g.Wait()
	return results, nil
}

// runOne implements the per-stage procedure of spec.md §4.5: in dry-run
// mode, report the stage without touching the lock store or the freshness
// oracle at all; otherwise consult the oracle, skip if fresh and not
// forced, invoke the runner, hash declared deps/outs (a hash failure here
// is logged as a warning and the path omitted from the manifest entry —
// the command itself already succeeded), and commit the new StageState to
// the lock store.
func (s *Scheduler) runOne(ctx context.Context, dag *DAG, name string) StageResult {
	stage, ok := dag.Stage(name)
	if !ok {
		return StageResult{Stage: name, Err: fmt.Errorf("%w: %s", ErrUnknownStage, name)}
	}

	if s.DryRun {
		return StageResult{Stage: name, Ran: false}
	}

	manifest, err := s.Lock.Read()
	if err != nil {
		return StageResult{Stage: name, Err: err}
	}
	recorded, hasRecord := manifest.Stages[stage.Name]
	var recordedPtr *StageState
	if hasRecord {
		recordedPtr = &recorded
	}

	reason := s.Oracle.Reason(stage, recordedPtr)
	fresh := reason == "up-to-date"

	if fresh && !s.Force {
		return StageResult{Stage: name, Skipped: true, Reason: reason}
	}
	if s.Force && fresh {
		reason = "forced"
	}

	stdout, stderr, runErr := s.Runner.Run(ctx, stage, s.Dir)
	result := StageResult{Stage: name, Ran: true, Reason: reason, Stdout: stdout, Stderr: stderr}
	if runErr != nil {
		result.Err = fmt.Errorf("stage %s: %w", name, runErr)
		return result
	}

	state := StageState{
		Cmd:  stage.Cmd,
		Deps: hashPaths(s.Oracle.Hasher, stage.Deps),
		Outs: hashPaths(s.Oracle.Hasher, stage.Outs),
	}
	if err := s.Lock.Update(stage.Name, state); err != nil {
		result.Err = fmt.Errorf("stage %s: commit manifest: %w", name, err)
	}
	return result
}

// hashPaths hashes every path, warning and omitting the path entirely from
// the result when it fails to hash, rather than aborting the whole stage —
// spec.md §4.5 step 3 / §7 HashUnavailable treats a post-run hash failure
// as a warning, since the command has already succeeded and the manifest
// update should not be lost over one unreadable declared path.
func hashPaths(h Hasher, paths []string) map[string]FileInfo {
	out := make(map[string]FileInfo, len(paths))
	for _, p := range paths {
		digest, err := h.Digest(p)
		if err != nil {
			warnf("warning: could not hash %s: %v\n", p, err)
			continue
		}
		size, err := h.Size(p)
		if err != nil {
			warnf("warning: could not size %s: %v\n", p, err)
			continue
		}
		out[p] = FileInfo{Path: p, MD5: digest, Size: size}
	}
	return out
}
