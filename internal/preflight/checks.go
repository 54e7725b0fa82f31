// Package preflight runs startup checks before the daemon accepts work.
package preflight

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"platen/internal/config"
	"platen/internal/deps"
	"platen/internal/fileutil"
)

// minFreeBytes is the floor below which the work directory is considered too
// full to accept conversions.
const minFreeBytes = 512 * 1024 * 1024

// Result captures the outcome of one preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Run executes all preflight checks for the given configuration.
func Run(cfg *config.Config) []Result {
	results := []Result{checkWorkDirSpace(cfg.Paths.WorkDir)}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		result := Result{Name: status.Name, Passed: status.Available}
		switch {
		case status.Available:
			result.Detail = status.Command
		case status.Optional:
			result.Passed = true
			result.Detail = status.Detail + " (optional)"
		default:
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// Failed returns the names of checks that did not pass.
func Failed(results []Result) []string {
	var failed []string
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result.Name)
		}
	}
	return failed
}

func checkWorkDirSpace(workDir string) Result {
	const name = "Work directory space"
	if strings.TrimSpace(workDir) == "" {
		return Result{Name: name, Detail: "work directory not configured"}
	}
	if err := fileutil.EnsureDir(workDir); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("not creatable: %v", err)}
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(workDir, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("statfs failed: %v", err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		return Result{
			Name:   name,
			Detail: fmt.Sprintf("only %d MiB free, need at least %d MiB", free/(1024*1024), minFreeBytes/(1024*1024)),
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MiB free", free/(1024*1024))}
}
