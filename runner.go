package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Runner executes one stage's command and captures its output. Stage
// commands run through a shell so the "&&"-joined multi-command form
// (stage.go's NewStage) behaves the way a user typing them at a terminal
// would expect — the same choice the teacher's executeStage makes for
// its cargo/bun invocations, and the reason a command is never
// pre-validated against PATH: a leading token like "cd" or "exit" is a
// shell builtin, not a binary, and only the shell itself can resolve it.
type Runner interface {
	Run(ctx context.Context, stage Stage, dir string) (stdout, stderr string, err error)
}

// ShellRunner is the default Runner: os/exec.CommandContext against
// "sh -c <cmd>", output buffered in full rather than streamed (spec.md
// §9 resolves the buffered-vs-streaming Open Question in favor of
// buffered, matching the simplicity of the teacher's own executeStage).
type ShellRunner struct{}

// NewShellRunner returns a ready-to-use ShellRunner.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{}
}

// Run invokes stage.Cmd under "sh -c" and lets the shell's own exit status
// carry any failure, including for stages whose command is a shell
// builtin (spec.md §8 scenario 5's `cmd: 'exit 1'`). The only case treated
// as ErrRunnerUnavailable is "sh" itself being absent from the host
// (spec.md §4.5, §7: "the runner's absence from the host system") — a
// stage's own command not existing is not a pre-flight rejection, it is
// that command's own not-found failure surfacing through the shell.
func (r *ShellRunner) Run(ctx context.Context, stage Stage, dir string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", stage.Cmd)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return stdout.String(), stderr.String(), fmt.Errorf("%w: %v", ErrRunnerUnavailable, err)
		}
	}
	return stdout.String(), stderr.String(), err
}
