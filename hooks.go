package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const hookMarkerBegin = "# >>> dvcrun >>>"
const hookMarkerEnd = "# <<< dvcrun <<<"

// getPreCommitHookTemplate returns the dvcrun section installed into a
// repo's pre-commit hook, bracketed by markers so CreatePreCommitHook can
// find and replace just its own section idempotently, and
// RemovePreCommitHook can identify when nothing but the section remains.
func getPreCommitHookTemplate(root string) string {
	return fmt.Sprintf(`#!/bin/bash
%s
# dvcrun pre-commit hook
cd "%s" || exit 1
dvcrun
dvcrun_status=$?
if [ $dvcrun_status -ne 0 ]; then
  echo "dvcrun failed; commit aborted" >&2
  exit 1
fi
%s
`, hookMarkerBegin, root, hookMarkerEnd)
}

// CreatePreCommitHook installs (or refreshes) the dvcrun section of
// root/.git/hooks/pre-commit, creating the hooks directory if needed and
// leaving any pre-existing hook content outside the markers untouched.
// Grounded on main.go's cmdInit/updateGitignore pattern: read-modify-
// write against a marker-delimited section rather than wholesale
// overwrite.
func CreatePreCommitHook(root string) error {
	hooksDir := filepath.Join(root, ".git", "hooks")
	if err := os.MkdirAll(hooksDir, 0755); err != nil {
		return fmt.Errorf("create hooks dir: %w", err)
	}
	hookPath := filepath.Join(hooksDir, "pre-commit")

	section := getPreCommitHookTemplate(root)

	existing, err := os.ReadFile(hookPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	var content string
	if len(existing) == 0 {
		content = section
	} else if strings.Contains(string(existing), hookMarkerBegin) {
		content = replaceSection(string(existing), section)
	} else {
		content = strings.TrimRight(string(existing), "\n") + "\n\n" + sectionOnly(section) + "\n"
	}

	return os.WriteFile(hookPath, []byte(content), 0755)
}

// RemovePreCommitHook removes the dvcrun section from the hook file. If
// nothing besides the dvcrun section (and its shebang) remains, the file
// itself is deleted. Missing .git, hooks dir, or hook file are all no-ops.
func RemovePreCommitHook(root string) error {
	hookPath := filepath.Join(root, ".git", "hooks", "pre-commit")

	data, err := os.ReadFile(hookPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	content := string(data)
	if !strings.Contains(content, hookMarkerBegin) {
		return nil
	}

	withoutSection := removeSection(content)
	if strings.TrimSpace(withoutSection) == "" || strings.TrimSpace(withoutSection) == "#!/bin/bash" {
		return os.Remove(hookPath)
	}

	return os.WriteFile(hookPath, []byte(withoutSection), 0755)
}

// sectionOnly strips the shebang line off a freshly generated template,
// for appending its markers-and-body into an existing hook file that
// already has its own shebang.
func sectionOnly(template string) string {
	idx := strings.Index(template, hookMarkerBegin)
	if idx < 0 {
		return template
	}
	return strings.TrimRight(template[idx:], "\n")
}

// replaceSection swaps the marker-delimited block inside content for a
// freshly generated one, preserving everything outside the markers.
func replaceSection(content, fresh string) string {
	begin := strings.Index(content, hookMarkerBegin)
	end := strings.Index(content, hookMarkerEnd)
	if begin < 0 || end < 0 || end < begin {
		return content
	}
	end += len(hookMarkerEnd)

	freshSection := sectionOnly(fresh)
	return content[:begin] + freshSection + content[end:]
}

// removeSection deletes the marker-delimited block (and one surrounding
// blank line, if present) from content.
func removeSection(content string) string {
	begin := strings.Index(content, hookMarkerBegin)
	end := strings.Index(content, hookMarkerEnd)
	if begin < 0 || end < 0 || end < begin {
		return content
	}
	end += len(hookMarkerEnd)

	before := strings.TrimRight(content[:begin], "\n")
	after := strings.TrimLeft(content[end:], "\n")
	if after == "" {
		return before + "\n"
	}
	return before + "\n\n" + after
}
