package service

import (
	"context"
	"fmt"
	"time"

	"depsweep-go/internal/config"
	"depsweep-go/pkg/analyzer"
	"depsweep-go/pkg/gitops"
	"depsweep-go/pkg/logger"
	"depsweep-go/pkg/organizer"
	"depsweep-go/pkg/pipeline"
	"depsweep-go/pkg/report"
	"depsweep-go/pkg/validate"
	"depsweep-go/pkg/watcher"
)

// Service wires the analyzer, pipeline and report emitter together. It
// implements AnalyzerService, FixService and IntakeService.
type Service struct {
	cfg *config.Config
	log *logger.Logger
}

// New creates the service over a loaded configuration.
func New(cfg *config.Config) *Service {
	return &Service{
		cfg: cfg,
		log: logger.GetLogger().WithField("component", "service"),
	}
}

func (s *Service) scanOptions() analyzer.Options {
	return analyzer.Options{
		IgnoreDirs:  s.cfg.Scan.IgnoreDirs,
		IgnoreFiles: s.cfg.Scan.IgnoreFiles,
		Extensions:  s.cfg.Scan.Extensions,
		Workers:     s.cfg.Worker.MaxWorkers,
	}
}

// Analyze runs the dependency diff and writes the cleanup report. The
// project tree is never modified.
func (s *Service) Analyze(ctx context.Context, projectRoot string) (*report.Report, error) {
	diff, err := analyzer.Diff(ctx, projectRoot, s.scanOptions())
	if err != nil {
		return nil, err
	}

	rep := s.buildReport(diff)
	if _, err := rep.Write(projectRoot); err != nil {
		return nil, err
	}

	s.publish(rep)
	s.log.WithField("summary", rep.Summary()).Info("Analysis complete")
	return rep, nil
}

// Fix analyzes the project when no queue is supplied, then processes the
// descriptor queue through the pipeline and writes the combined report.
func (s *Service) Fix(ctx context.Context, projectRoot string, queue []pipeline.FixDescriptor) (*report.Report, error) {
	diff, err := analyzer.Diff(ctx, projectRoot, s.scanOptions())
	if err != nil {
		return nil, err
	}

	if queue == nil {
		queue = DescriptorsFromDiff(diff)
	}

	git := gitops.NewClient(projectRoot)
	harness := validate.NewHarness(s.cfg.Validate.Command,
		time.Duration(s.cfg.Validate.GraceSeconds)*time.Second)

	p := pipeline.New(projectRoot, git, harness)
	p.SetBranchPrefix(s.cfg.Pipeline.BranchPrefix)

	base, err := s.ensureBaseBranch(git, p.BaseBranch())
	if err != nil {
		return nil, err
	}

	outcomes, state, err := p.Run(ctx, queue, base)
	if err != nil {
		return nil, fmt.Errorf("fix pipeline aborted: %w", err)
	}

	rep := s.buildReport(diff)
	rep.Fixes = outcomes
	if _, err := rep.Write(projectRoot); err != nil {
		return nil, err
	}

	s.publish(rep)
	s.log.WithFields(map[string]interface{}{
		"summary":      rep.Summary(),
		"last_working": state.LastWorkingBranch,
	}).Info("Fix run complete")
	return rep, nil
}

// Intake blocks until an archive lands in the monitor directory, then
// extracts it and prepares a git baseline for the pipeline.
func (s *Service) Intake(ctx context.Context) (string, error) {
	w, err := watcher.NewWatcher(s.cfg.Project.MonitorDir)
	if err != nil {
		return "", err
	}

	archive, err := w.WaitForArchive(ctx)
	if err != nil {
		return "", err
	}

	projectPath, err := watcher.Unzip(archive, s.cfg.Project.UnzipDir)
	if err != nil {
		return "", err
	}

	git := gitops.NewClient(projectPath)
	if err := git.Init(s.cfg.Pipeline.BranchPrefix + "_base"); err != nil {
		return "", err
	}

	s.log.WithField("project", projectPath).Info("Project prepared")
	return projectPath, nil
}

// DescriptorsFromDiff turns each unused dependency into a fix descriptor,
// in sorted order so queue positions are stable across runs.
func DescriptorsFromDiff(diff *analyzer.DiffResult) []pipeline.FixDescriptor {
	unused := diff.UnusedList()
	queue := make([]pipeline.FixDescriptor, 0, len(unused))
	for _, name := range unused {
		queue = append(queue, pipeline.FixDescriptor{
			Kind:       pipeline.KindUnusedDependency,
			Message:    "Remove unused dependency: " + name,
			Dependency: name,
		})
	}
	return queue
}

func (s *Service) buildReport(diff *analyzer.DiffResult) *report.Report {
	rep := report.New()
	rep.SetDependencies(diff.Used, diff.Unused)
	rep.SetFolders(organizer.NewOrganizer(organizer.DefaultCategories(), s.cfg.Scan.IgnoreDirs).Folders())
	rep.SkippedFiles = diff.SkippedFiles
	rep.DiffSkipped = diff.Skipped
	return rep
}

// ensureBaseBranch switches to the pipeline's base branch, creating it
// from the current state when it does not exist yet.
func (s *Service) ensureBaseBranch(git *gitops.Client, base string) (string, error) {
	current, err := git.CurrentBranch()
	if err != nil {
		return "", err
	}
	if current == base {
		return base, nil
	}
	if err := git.Checkout(base); err == nil {
		return base, nil
	}
	if err := git.CreateBranch(base); err != nil {
		return "", err
	}
	return base, nil
}

// publish submits the report to the configured endpoint, when one is
// set. Submission failures are logged, not fatal: the local artifact is
// the source of truth.
func (s *Service) publish(rep *report.Report) {
	if s.cfg.Report.Endpoint == "" {
		return
	}
	pub, err := report.NewPublisher(report.PublisherConfig{
		Endpoint:   s.cfg.Report.Endpoint,
		APIKey:     s.cfg.Report.APIKey,
		EnableGzip: s.cfg.Report.EnableGzip,
	})
	if err != nil {
		s.log.WithError(err).Warn("Report publisher misconfigured")
		return
	}
	if err := pub.Publish(rep); err != nil {
		s.log.WithError(err).Warn("Report submission failed")
	}
}
