package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"depsweep-go/pkg/logger"
	"depsweep-go/pkg/pipeline"
)

// FileName is the report artifact written at the project root.
const FileName = "cleanup_report.json"

// Report is the structured record of one analysis or pipeline run.
// List fields are kept sorted so repeated runs over an unchanged tree
// produce identical artifacts.
type Report struct {
	RunID              string             `json:"run_id"`
	GeneratedAt        string             `json:"generated_at"`
	UnusedDependencies []string           `json:"unused_dependencies"`
	UsedDependencies   []string           `json:"used_dependencies"`
	OrganizedFolders   []string           `json:"organized_folders"`
	SkippedFiles       []string           `json:"skipped_files,omitempty"`
	Fixes              []pipeline.Outcome `json:"fixes,omitempty"`
	DiffSkipped        bool               `json:"diff_skipped,omitempty"`
}

// New creates a report with a fresh run id and timestamp.
func New() *Report {
	return &Report{
		RunID:              uuid.NewString(),
		GeneratedAt:        time.Now().UTC().Format(time.RFC3339),
		UnusedDependencies: []string{},
		UsedDependencies:   []string{},
		OrganizedFolders:   []string{},
	}
}

// SetDependencies fills the used/unused lists from sets, sorted.
func (r *Report) SetDependencies(used, unused map[string]struct{}) {
	r.UsedDependencies = sortedList(used)
	r.UnusedDependencies = sortedList(unused)
}

// SetFolders records the organizational categories in use, sorted.
func (r *Report) SetFolders(folders []string) {
	r.OrganizedFolders = append([]string(nil), folders...)
	sort.Strings(r.OrganizedFolders)
}

// Write serializes the report to the project root, overwriting any prior
// artifact. A write failure is fatal to the run.
func (r *Report) Write(projectRoot string) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(projectRoot, FileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"path":   path,
		"used":   len(r.UsedDependencies),
		"unused": len(r.UnusedDependencies),
	}).Info("Cleanup report written")
	return path, nil
}

// Summary returns the one-line per-run summary shown to the user.
func (r *Report) Summary() string {
	fixed, reverted := 0, 0
	for _, f := range r.Fixes {
		if f.Status == pipeline.StatusFixed {
			fixed++
		} else {
			reverted++
		}
	}
	if len(r.Fixes) > 0 {
		return fmt.Sprintf("%d used, %d unused dependencies; %d fixes committed, %d reverted",
			len(r.UsedDependencies), len(r.UnusedDependencies), fixed, reverted)
	}
	return fmt.Sprintf("%d used, %d unused dependencies",
		len(r.UsedDependencies), len(r.UnusedDependencies))
}

func sortedList(set map[string]struct{}) []string {
	list := make([]string, 0, len(set))
	for k := range set {
		list = append(list, k)
	}
	sort.Strings(list)
	return list
}
