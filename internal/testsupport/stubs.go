package testsupport

import (
	"context"
	"time"

	"platen/internal/jobs"
	"platen/internal/pipeline"
	"platen/internal/services"
)

// StubCollaborator is a scriptable pipeline collaborator for tests.
type StubCollaborator struct {
	StageName string
	Outcome   pipeline.Outcome
	Delay     time.Duration
	RunFunc   func(ctx context.Context, req pipeline.Request) pipeline.Outcome
	Calls     int
}

// Name implements pipeline.Collaborator.
func (s *StubCollaborator) Name() string {
	if s.StageName == "" {
		return "stub"
	}
	return s.StageName
}

// Run implements pipeline.Collaborator. It honors Delay and context
// cancellation before returning the scripted outcome.
func (s *StubCollaborator) Run(ctx context.Context, req pipeline.Request) pipeline.Outcome {
	s.Calls++
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return pipeline.Fatal(ctx.Err(), nil)
		}
	}
	if s.RunFunc != nil {
		return s.RunFunc(ctx, req)
	}
	return s.Outcome
}

// OKCollaborator returns a stub that succeeds with the given metadata.
func OKCollaborator(name string, meta jobs.Metadata) *StubCollaborator {
	return &StubCollaborator{StageName: name, Outcome: pipeline.OK(meta)}
}

// AllOKCollaborators wires four succeeding stubs, the validator reporting a
// perfect quality score.
func AllOKCollaborators() pipeline.Collaborators {
	return pipeline.Collaborators{
		Compiler:        OKCollaborator("compile", nil),
		MarkupConverter: OKCollaborator("markup", jobs.Metadata{"output_files": []string{"doc.html"}}),
		PostProcessor:   OKCollaborator("postprocess", nil),
		Validator:       OKCollaborator("validate", jobs.Metadata{"quality_score": 100.0}),
	}
}

// StubRunner is a scriptable services.CommandRunner for stage tests.
type StubRunner struct {
	Results map[string]services.CommandResult
	Errs    map[string]error
	Invoked []string
	OnRun   func(dir, binary string, args []string)
}

// Run implements services.CommandRunner keyed by binary name.
func (s *StubRunner) Run(ctx context.Context, dir, binary string, args ...string) (services.CommandResult, error) {
	s.Invoked = append(s.Invoked, binary)
	if s.OnRun != nil {
		s.OnRun(dir, binary, args)
	}
	if err, ok := s.Errs[binary]; ok && err != nil {
		return s.Results[binary], err
	}
	return s.Results[binary], nil
}
