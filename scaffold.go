package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// starterPipeline is the default dvc.yaml scaffolded by `dvcrun init`. It
// ships a single example stage rather than per-language stage templates
// — unlike the teacher's project_type.go/project.go, stage definitions
// now live entirely in the pipeline file, so init has nothing
// language-specific left to special-case.
const starterPipeline = `stages:
  build:
    cmd: echo "replace me with a real build command"
    deps: []
    outs: []
    desc: Example stage; edit or replace.
`

// Init scaffolds a new dvcrun project at root: writes a starter pipeline
// file (unless one exists), writes the default tool config, updates
// .gitignore for the lock sidecar file, and installs a pre-commit hook
// if the directory is a git repo. Grounded on main.go's cmdInit.
func Init(root string, cfg *Config) error {
	pipelinePath := filepath.Join(root, cfg.PipelineFile)
	if _, err := os.Stat(pipelinePath); err == nil {
		printf("Pipeline file already exists at %s, leaving it in place\n", pipelinePath)
	} else if os.IsNotExist(err) {
		if err := os.WriteFile(pipelinePath, []byte(starterPipeline), 0644); err != nil {
			return fmt.Errorf("write %s: %w", cfg.PipelineFile, err)
		}
		successf("Created %s\n", cfg.PipelineFile)
	} else {
		return fmt.Errorf("stat %s: %w", cfg.PipelineFile, err)
	}

	if err := SaveDefaultConfig(root); err != nil {
		warnf("Could not write %s: %v\n", defaultConfigFile, err)
	} else {
		successf("Created %s\n", defaultConfigFile)
	}

	gitignorePath := filepath.Join(root, ".gitignore")
	if err := updateGitignore(gitignorePath, cfg.LockFile+".lock"); err != nil {
		warnf("Could not update .gitignore: %v\n", err)
	} else {
		successf("Updated .gitignore\n")
	}

	gitDir := filepath.Join(root, ".git")
	if _, err := os.Stat(gitDir); err == nil {
		if err := CreatePreCommitHook(root); err != nil {
			warnf("Could not create pre-commit hook: %v\n", err)
		} else {
			successf("Installed pre-commit hook\n")
		}
	}

	printf("\nNext steps:\n")
	printf("  1. Edit %s to describe your pipeline\n", cfg.PipelineFile)
	printf("  2. Run 'dvcrun' to execute it\n")
	return nil
}

// updateGitignore appends entry to path if it is not already present,
// creating the file if it doesn't exist. Carried over from the teacher's
// main.go unchanged — the append-if-absent logic does not depend on any
// CI-specific concept.
func updateGitignore(path string, entry string) error {
	data, err := os.ReadFile(path)
	var content string
	if err == nil {
		content = string(data)
	} else if !os.IsNotExist(err) {
		return err
	}

	if strings.Contains(content, entry) {
		return nil
	}

	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += entry + "\n"

	return os.WriteFile(path, []byte(content), 0644)
}
