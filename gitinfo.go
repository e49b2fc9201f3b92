package main

import (
	"os/exec"
	"strings"
)

// GitInfo identifies the checkout a database was generated from. All fields
// are empty when the analyzed directory is not a git work tree.
type GitInfo struct {
	Commit string // full SHA of HEAD
	Branch string
	Dirty  bool
}

// ReadGitInfo captures the analyzed module's git state. Failures are
// tolerated: analysis of an unversioned tree still produces a database, just
// without provenance.
func ReadGitInfo(dir string, prog *Progress) GitInfo {
	var info GitInfo

	out, err := gitOutput(dir, "rev-parse", "HEAD")
	if err != nil {
		prog.Verbose("git info for %s: %v", dir, err)
		return info
	}
	info.Commit = out

	if out, err := gitOutput(dir, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		info.Branch = out
	}
	if out, err := gitOutput(dir, "status", "--porcelain"); err == nil {
		info.Dirty = out != ""
	}
	return info
}

func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
