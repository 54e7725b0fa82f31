// Package deps reports the availability of the external conversion
// toolchain.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"platen/internal/config"
)

// Requirement defines an external binary the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements derives the toolchain requirements from config.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "Compiler",
			Command:     cfg.Tools.Compiler.Command,
			Description: "LaTeX to PDF compilation (stage 1, recoverable)",
			Optional:    true,
		},
		{
			Name:        "Markup converter",
			Command:     cfg.Tools.MarkupConverter.Command,
			Description: "TeX to HTML conversion (stage 2)",
		},
		{
			Name:        "HTML cleaner",
			Command:     cfg.Tools.HTMLCleaner.Command,
			Description: "HTML cleanup (stage 3)",
		},
		{
			Name:        "Vector converter",
			Command:     cfg.Tools.VectorConverter.Command,
			Description: "Vector figure to SVG conversion (stage 3)",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of required binaries that are
// unavailable.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
