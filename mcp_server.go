package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofrs/flock"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// mcpContext holds the shared engine state every MCP tool handler needs.
// Grounded on the teacher's mcp_server.go mcpContext, re-pointed from a
// Config/Workspace pair at the DAG/LockStore/FreshnessOracle the new
// domain actually runs on.
type mcpContext struct {
	root   string
	config *Config
	dag    *DAG
	lock   *LockStore
	oracle FreshnessOracle
}

// cmdServe builds and runs the dvcrun MCP server over stdio, exposing
// the pipeline as four tools: list_stages, get_execution_plan,
// run_pipeline, invalidate_stage (spec.md §6.6, via the already-required
// mark3labs/mcp-go client used by the teacher's own server).
func cmdServe(root string) error {
	cfg, err := LoadConfig(root)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	stages, err := ParsePipelineFile(pipelineFilePath(root, cfg))
	if err != nil {
		return fmt.Errorf("failed to load pipeline: %w", err)
	}
	dag, err := NewDAG(stages)
	if err != nil {
		return fmt.Errorf("failed to build DAG: %w", err)
	}
	if err := dag.CheckCycles(); err != nil {
		return err
	}

	mc := &mcpContext{
		root:   root,
		config: cfg,
		dag:    dag,
		lock:   NewLockStore(lockFilePath(root, cfg)),
		oracle: FreshnessOracle{},
	}

	s := server.NewMCPServer(
		"dvcrun",
		version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("list_stages",
		mcp.WithDescription("List every stage in the pipeline with its command, deps, and outs"),
	), mc.handleListStages)

	s.AddTool(mcp.NewTool("get_execution_plan",
		mcp.WithDescription("Return the layered execution plan (parallel stage groups in run order)"),
	), mc.handleGetExecutionPlan)

	s.AddTool(mcp.NewTool("run_pipeline",
		mcp.WithDescription("Run the pipeline, optionally restricted to target stages"),
		mcp.WithArray("targets", mcp.Description("Stage names to run, with their dependencies; empty means all")),
		mcp.WithBoolean("dry_run", mcp.Description("List the planned stages without executing anything or checking freshness")),
		mcp.WithBoolean("force", mcp.Description("Run targets even if they are already fresh")),
	), mc.handleRunPipeline)

	s.AddTool(mcp.NewTool("invalidate_stage",
		mcp.WithDescription("Remove a stage's recorded state so it is treated as never having run"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Stage name to invalidate")),
	), mc.handleInvalidateStage)

	return server.ServeStdio(s)
}

func (mc *mcpContext) handleListStages(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type stageInfo struct {
		Name string   `json:"name"`
		Cmd  string   `json:"cmd"`
		Deps []string `json:"deps"`
		Outs []string `json:"outs"`
		Desc string   `json:"desc,omitempty"`
	}

	names := mc.dag.StageNames()
	var stages []stageInfo
	for _, name := range names {
		s, _ := mc.dag.Stage(name)
		stages = append(stages, stageInfo{Name: s.Name, Cmd: s.Cmd, Deps: s.Deps, Outs: s.Outs, Desc: s.Desc})
	}

	data, _ := json.Marshal(stages)
	return mcp.NewToolResultText(string(data)), nil
}

func (mc *mcpContext) handleGetExecutionPlan(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	layers, err := mc.dag.Layers()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, _ := json.Marshal(layers)
	return mcp.NewToolResultText(string(data)), nil
}

func (mc *mcpContext) handleRunPipeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var targets []string
	if raw, ok := req.GetArguments()["targets"]; ok {
		if list, ok := raw.([]interface{}); ok {
			for _, v := range list {
				if s, ok := v.(string); ok {
					targets = append(targets, s)
				}
			}
		}
	}

	sched := NewScheduler(mc.dag, mc.lock, mc.root)
	sched.Jobs = mc.config.Jobs
	sched.DryRun = req.GetBool("dry_run", false)
	sched.Force = req.GetBool("force", false)

	results, err := sched.Run(ctx, targets)
	data, _ := json.Marshal(resultsToJSON(results))
	if err != nil {
		return mcp.NewToolResultText(string(data)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (mc *mcpContext) handleInvalidateStage(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}
	if _, ok := mc.dag.Stage(name); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown stage: %s", name)), nil
	}

	fl := flock.New(mc.lock.LockPath)
	locked, err := mc.lock.tryLock(fl)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !locked {
		return mcp.NewToolResultError(ErrLockContention.Error()), nil
	}
	defer fl.Unlock()

	manifest, err := mc.lock.readUnlocked()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, existed := manifest.Stages[name]; !existed {
		return mcp.NewToolResultText(fmt.Sprintf(`{"stage":%q,"status":"no_recorded_state"}`, name)), nil
	}

	delete(manifest.Stages, name)
	if err := mc.lock.writeAtomic(manifest); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(`{"stage":%q,"status":"invalidated"}`, name)), nil
}

// mcpResultJSON mirrors StageResult in the CLI's JSON reporting shape,
// reused here so MCP clients and the --json CLI flag agree on schema.
type mcpResultJSON struct {
	Stage   string `json:"stage"`
	Ran     bool   `json:"ran"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
	Stdout  string `json:"stdout,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
	Error   string `json:"error,omitempty"`
}

func resultsToJSON(results []StageResult) []mcpResultJSON {
	out := make([]mcpResultJSON, 0, len(results))
	for _, r := range results {
		item := mcpResultJSON{
			Stage:   r.Stage,
			Ran:     r.Ran,
			Skipped: r.Skipped,
			Reason:  r.Reason,
			Stdout:  r.Stdout,
			Stderr:  r.Stderr,
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		out = append(out, item)
	}
	return out
}
