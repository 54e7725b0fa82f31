package preflight_test

import (
	"os"
	"strings"
	"testing"

	"platen/internal/preflight"
	"platen/internal/testsupport"
)

func TestRunPassesWithFullToolchain(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	results := preflight.Run(cfg)
	if failed := preflight.Failed(results); len(failed) != 0 {
		t.Fatalf("failed checks: %v", failed)
	}

	if results[0].Name != "Work directory space" {
		t.Fatalf("first check = %q", results[0].Name)
	}
	if _, err := os.Stat(cfg.Paths.WorkDir); err != nil {
		t.Fatalf("work dir not created: %v", err)
	}
}

func TestRunMissingOptionalToolStillPasses(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("pandoc", "tidy"))
	cfg.Tools.Compiler.Command = "no-such-compiler-4b1c"
	cfg.Tools.VectorConverter.Command = "no-such-vector-4b1c"

	results := preflight.Run(cfg)
	if failed := preflight.Failed(results); len(failed) != 0 {
		t.Fatalf("failed checks: %v", failed)
	}

	for _, result := range results {
		if result.Name == "Compiler" && !strings.Contains(result.Detail, "(optional)") {
			t.Fatalf("compiler detail = %q", result.Detail)
		}
	}
}

func TestRunMissingRequiredToolFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("latexmk", "pandoc", "dvisvgm"))
	cfg.Tools.HTMLCleaner.Command = "no-such-cleaner-4b1c"

	failed := preflight.Failed(preflight.Run(cfg))
	if len(failed) != 1 || failed[0] != "HTML cleaner" {
		t.Fatalf("failed = %v", failed)
	}
}

func TestRunUnconfiguredWorkDirFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Paths.WorkDir = "   "

	failed := preflight.Failed(preflight.Run(cfg))
	if len(failed) == 0 || failed[0] != "Work directory space" {
		t.Fatalf("failed = %v", failed)
	}
}
