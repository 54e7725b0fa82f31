package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// SanityReport summarizes a cheap structural check of a LaTeX source file.
// It is advisory: the pipeline attaches it as diagnostics on the fallback
// path and never aborts because of it.
type SanityReport struct {
	Checked  bool
	Warnings []string
	Errors   []string
}

// CheckSourceSanity scans the source for unbalanced braces, unmatched
// \begin/\end environments, and a missing document root. Read failures yield
// an unchecked report rather than an error; this check must never block the
// pipeline.
func CheckSourceSanity(path string) SanityReport {
	file, err := os.Open(path)
	if err != nil {
		return SanityReport{}
	}
	defer file.Close()

	report := SanityReport{Checked: true}

	braceDepth := 0
	var envStack []string
	sawDocumentClass := false
	sawDocumentBegin := false

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())

		for _, r := range line {
			switch r {
			case '{':
				braceDepth++
			case '}':
				braceDepth--
				if braceDepth < 0 {
					report.Errors = append(report.Errors,
						fmt.Sprintf("unbalanced closing brace at line %d", lineNo))
					braceDepth = 0
				}
			}
		}

		if strings.Contains(line, `\documentclass`) {
			sawDocumentClass = true
		}
		for _, env := range extractEnvs(line, `\begin{`) {
			if env == "document" {
				sawDocumentBegin = true
			}
			envStack = append(envStack, env)
		}
		for _, env := range extractEnvs(line, `\end{`) {
			if len(envStack) == 0 {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("\\end{%s} without matching \\begin at line %d", env, lineNo))
				continue
			}
			top := envStack[len(envStack)-1]
			envStack = envStack[:len(envStack)-1]
			if top != env {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("environment mismatch: \\begin{%s} closed by \\end{%s} at line %d", top, env, lineNo))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return SanityReport{}
	}

	if braceDepth > 0 {
		report.Errors = append(report.Errors,
			fmt.Sprintf("%d unclosed brace(s) at end of file", braceDepth))
	}
	for _, env := range envStack {
		report.Errors = append(report.Errors,
			fmt.Sprintf("environment %q never closed", env))
	}
	if !sawDocumentClass {
		report.Warnings = append(report.Warnings, "no \\documentclass declaration found")
	}
	if !sawDocumentBegin {
		report.Errors = append(report.Errors, "no \\begin{document} found")
	}
	return report
}

func stripComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] == '%' && (i == 0 || line[i-1] != '\\') {
			return line[:i]
		}
	}
	return line
}

func extractEnvs(line, marker string) []string {
	var envs []string
	rest := line
	for {
		idx := strings.Index(rest, marker)
		if idx < 0 {
			return envs
		}
		rest = rest[idx+len(marker):]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return envs
		}
		name := strings.TrimSpace(rest[:end])
		if name != "" {
			envs = append(envs, name)
		}
		rest = rest[end+1:]
	}
}
