package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to the target path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteTeXSource writes a minimal compilable LaTeX document to path and
// returns the path.
func WriteTeXSource(t testing.TB, path string) string {
	t.Helper()

	WriteFile(t, path, "\\documentclass{article}\n\\begin{document}\nhello\n\\end{document}\n")
	return path
}
