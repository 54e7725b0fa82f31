package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.tex")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestCheckSourceSanityCleanDocument(t *testing.T) {
	path := writeSource(t, strings.Join([]string{
		`\documentclass{article}`,
		`\begin{document}`,
		`\begin{itemize}`,
		`\item one {grouped}`,
		`\end{itemize}`,
		`\end{document}`,
	}, "\n"))

	report := CheckSourceSanity(path)
	if !report.Checked {
		t.Fatal("expected report to be checked")
	}
	if len(report.Warnings) != 0 || len(report.Errors) != 0 {
		t.Fatalf("clean document flagged: warnings=%v errors=%v", report.Warnings, report.Errors)
	}
}

func TestCheckSourceSanityUnbalancedBraces(t *testing.T) {
	path := writeSource(t, strings.Join([]string{
		`\documentclass{article}`,
		`\begin{document}`,
		`{unclosed`,
		`\end{document}`,
	}, "\n"))

	report := CheckSourceSanity(path)
	if len(report.Errors) == 0 {
		t.Fatal("expected unclosed brace error")
	}
}

func TestCheckSourceSanityExtraClosingBrace(t *testing.T) {
	path := writeSource(t, strings.Join([]string{
		`\documentclass{article}`,
		`\begin{document}`,
		`text}`,
		`\end{document}`,
	}, "\n"))

	report := CheckSourceSanity(path)
	found := false
	for _, msg := range report.Errors {
		if strings.Contains(msg, "unbalanced closing brace at line 3") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected line-numbered brace error, got %v", report.Errors)
	}
}

func TestCheckSourceSanityEnvironmentMismatch(t *testing.T) {
	path := writeSource(t, strings.Join([]string{
		`\documentclass{article}`,
		`\begin{document}`,
		`\begin{itemize}`,
		`\end{enumerate}`,
		`\end{document}`,
	}, "\n"))

	report := CheckSourceSanity(path)
	if len(report.Warnings) == 0 {
		t.Fatalf("expected mismatch warning, got %v", report.Warnings)
	}
}

func TestCheckSourceSanityUnclosedEnvironment(t *testing.T) {
	path := writeSource(t, strings.Join([]string{
		`\documentclass{article}`,
		`\begin{document}`,
		`\begin{figure}`,
	}, "\n"))

	report := CheckSourceSanity(path)
	joined := strings.Join(report.Errors, "; ")
	if !strings.Contains(joined, `"figure"`) && !strings.Contains(joined, `"document"`) {
		t.Fatalf("expected unclosed environment errors, got %v", report.Errors)
	}
}

func TestCheckSourceSanityMissingDocumentRoot(t *testing.T) {
	path := writeSource(t, "just some text\n")

	report := CheckSourceSanity(path)
	if len(report.Warnings) == 0 {
		t.Fatal("expected missing documentclass warning")
	}
	if len(report.Errors) == 0 {
		t.Fatal("expected missing begin{document} error")
	}
}

func TestCheckSourceSanityIgnoresComments(t *testing.T) {
	path := writeSource(t, strings.Join([]string{
		`\documentclass{article}`,
		`\begin{document}`,
		`% {this brace is commented out`,
		`text with escaped percent \% and {balanced}`,
		`\end{document}`,
	}, "\n"))

	report := CheckSourceSanity(path)
	if len(report.Errors) != 0 {
		t.Fatalf("comment content leaked into checks: %v", report.Errors)
	}
}

func TestCheckSourceSanityUnreadableFile(t *testing.T) {
	report := CheckSourceSanity(filepath.Join(t.TempDir(), "missing.tex"))
	if report.Checked {
		t.Fatal("unreadable file must yield an unchecked report")
	}
}
