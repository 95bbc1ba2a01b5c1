package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"depsweep-go/internal/config"
	"depsweep-go/pkg/analyzer"
	"depsweep-go/pkg/pipeline"
	"depsweep-go/pkg/report"
)

func writeTestProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	manifest := `{
		"name": "test-app",
		"dependencies": {
			"react": "^18.0.0",
			"lodash": "^4.17.21",
			"left-pad": "^1.3.0"
		}
	}`
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	src := filepath.Join(dir, "src")
	if err := os.Mkdir(src, 0755); err != nil {
		t.Fatalf("failed to create src dir: %v", err)
	}
	app := "import 'react'\nconst _ = require 'lodash'\n"
	if err := os.WriteFile(filepath.Join(src, "App.jsx"), []byte(app), 0644); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}

	return dir
}

func TestAnalyzeWritesReport(t *testing.T) {
	dir := writeTestProject(t)
	svc := New(config.Default())

	rep, err := svc.Analyze(context.Background(), dir)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if len(rep.UnusedDependencies) != 1 || rep.UnusedDependencies[0] != "left-pad" {
		t.Errorf("expected left-pad unused, got %v", rep.UnusedDependencies)
	}
	if len(rep.UsedDependencies) != 2 {
		t.Errorf("expected 2 used dependencies, got %v", rep.UsedDependencies)
	}

	data, err := os.ReadFile(filepath.Join(dir, report.FileName))
	if err != nil {
		t.Fatalf("report artifact missing: %v", err)
	}
	var onDisk report.Report
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("report artifact is not valid JSON: %v", err)
	}
	if onDisk.RunID != rep.RunID {
		t.Errorf("artifact run id %q does not match returned report %q", onDisk.RunID, rep.RunID)
	}
}

func TestAnalyzeMissingManifest(t *testing.T) {
	dir := t.TempDir()
	svc := New(config.Default())

	rep, err := svc.Analyze(context.Background(), dir)
	if err != nil {
		t.Fatalf("analyze should tolerate a missing manifest: %v", err)
	}
	if !rep.DiffSkipped {
		t.Error("expected the report to record the skipped diff")
	}
	if len(rep.UnusedDependencies) != 0 || len(rep.UsedDependencies) != 0 {
		t.Errorf("expected empty dependency lists, got used=%v unused=%v",
			rep.UsedDependencies, rep.UnusedDependencies)
	}
}

func TestDescriptorsFromDiff(t *testing.T) {
	diff := &analyzer.DiffResult{
		Unused: map[string]struct{}{
			"moment":   {},
			"left-pad": {},
		},
	}

	queue := DescriptorsFromDiff(diff)
	if len(queue) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(queue))
	}
	// Sorted by dependency name so queue positions are stable.
	if queue[0].Dependency != "left-pad" || queue[1].Dependency != "moment" {
		t.Errorf("queue not sorted: %+v", queue)
	}
	for _, d := range queue {
		if d.Kind != pipeline.KindUnusedDependency {
			t.Errorf("unexpected kind %q", d.Kind)
		}
		if d.Message != "Remove unused dependency: "+d.Dependency {
			t.Errorf("unexpected message %q", d.Message)
		}
	}
}

func TestDescriptorsFromDiffEmpty(t *testing.T) {
	queue := DescriptorsFromDiff(&analyzer.DiffResult{})
	if len(queue) != 0 {
		t.Errorf("expected empty queue, got %+v", queue)
	}
}
