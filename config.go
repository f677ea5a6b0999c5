package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

// defaultConfigFile is the ambient tool config's filename, read from the
// pipeline root the same way the teacher reads .local-ci.toml.
const defaultConfigFile = ".dvcrun.toml"

// Config holds engine-wide defaults that apply across every stage, as
// opposed to the per-stage cmd/deps/outs declarations that now live in
// the pipeline YAML file (pipelinefile.go). Repurposed from the
// teacher's Config, which used to hold per-stage TOML definitions —
// those moved into the pipeline spec per spec.md §6.1, leaving this file
// to carry only tool-level settings. LockRetryMillis and LockTimeoutSecs
// are loaded and written out, but LockStore does not read them: it always
// retries every lockRetryInterval for up to lockRetryTimeout.
type Config struct {
	Jobs           int    `toml:"jobs"`
	PipelineFile   string `toml:"pipeline_file"`
	LockFile       string `toml:"lock_file"`
	LockRetryMillis int   `toml:"lock_retry_millis"`
	LockTimeoutSecs int   `toml:"lock_timeout_secs"`
}

// defaultConfig returns the engine's built-in defaults, used whenever no
// .dvcrun.toml is present or a field is left unset in one that is.
func defaultConfig() *Config {
	return &Config{
		Jobs:            runtime.NumCPU(),
		PipelineFile:    "dvc.yaml",
		LockFile:        "dvc.lock",
		LockRetryMillis: int(lockRetryInterval / time.Millisecond),
		LockTimeoutSecs: int(lockRetryTimeout / time.Second),
	}
}

// LoadConfig loads .dvcrun.toml from root, falling back to built-in
// defaults for any field the file omits, and to a pure-default Config
// when no file exists at all.
func LoadConfig(root string) (*Config, error) {
	cfg := defaultConfig()

	path := filepath.Join(root, defaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read %s: %w", defaultConfigFile, err)
	}

	var fileCfg Config
	if err := toml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", defaultConfigFile, err)
	}

	if fileCfg.Jobs > 0 {
		cfg.Jobs = fileCfg.Jobs
	}
	if fileCfg.PipelineFile != "" {
		cfg.PipelineFile = fileCfg.PipelineFile
	}
	if fileCfg.LockFile != "" {
		cfg.LockFile = fileCfg.LockFile
	}
	if fileCfg.LockRetryMillis > 0 {
		cfg.LockRetryMillis = fileCfg.LockRetryMillis
	}
	if fileCfg.LockTimeoutSecs > 0 {
		cfg.LockTimeoutSecs = fileCfg.LockTimeoutSecs
	}
	return cfg, nil
}

// SaveDefaultConfig writes a fresh .dvcrun.toml at root, failing if one
// already exists — mirrors the teacher's SaveDefaultConfig guard against
// clobbering a hand-edited file.
func SaveDefaultConfig(root string) error {
	path := filepath.Join(root, defaultConfigFile)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	cfg := defaultConfig()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", defaultConfigFile, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("write %s: %w", defaultConfigFile, err)
	}
	return nil
}
