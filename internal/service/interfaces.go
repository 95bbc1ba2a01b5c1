package service

import (
	"context"

	"depsweep-go/pkg/pipeline"
	"depsweep-go/pkg/report"
)

// AnalyzerService produces a dependency-usage report for a project tree
// without mutating it.
type AnalyzerService interface {
	Analyze(ctx context.Context, projectRoot string) (*report.Report, error)
}

// FixService runs the fix-validate-rollback pipeline over a descriptor
// queue. A nil queue is built from the project's unused dependencies.
type FixService interface {
	Fix(ctx context.Context, projectRoot string, queue []pipeline.FixDescriptor) (*report.Report, error)
}

// IntakeService waits for a project archive to arrive, extracts it and
// prepares it for the pipeline (git init plus base branch).
type IntakeService interface {
	Intake(ctx context.Context) (string, error)
}
