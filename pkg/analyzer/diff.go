package analyzer

import (
	"context"
	"sort"

	"depsweep-go/pkg/logger"
	"depsweep-go/pkg/manifest"
)

// DiffResult compares declared dependencies against observed usage.
// The diff is pure detection: nothing is removed from the project here.
type DiffResult struct {
	// Used is the merged import set: every identifier the scan observed,
	// declared or not.
	Used map[string]struct{}
	// Unused is declared-minus-used, recomputed fresh on every run.
	Unused map[string]struct{}
	// Skipped is true when no manifest exists; both sets are then empty.
	Skipped bool
	// SkippedFiles carries the aggregator's undecodable-file list through
	// to the report.
	SkippedFiles []string
}

// UsedList returns the used set as a sorted slice.
func (r *DiffResult) UsedList() []string { return sortedKeys(r.Used) }

// UnusedList returns the unused set as a sorted slice.
func (r *DiffResult) UnusedList() []string { return sortedKeys(r.Unused) }

// Diff reads the project manifest and computes the unused-dependency set.
// A missing manifest is not an error: the diff is skipped and both sets
// come back empty.
func Diff(ctx context.Context, projectRoot string, opts Options) (*DiffResult, error) {
	log := logger.GetLogger().WithField("component", "diff_engine")

	if !manifest.Exists(projectRoot) {
		log.WithField("root", projectRoot).Info("No manifest found, skipping dependency diff")
		return &DiffResult{
			Used:    map[string]struct{}{},
			Unused:  map[string]struct{}{},
			Skipped: true,
		}, nil
	}

	m, err := manifest.Load(projectRoot)
	if err != nil {
		return nil, err
	}
	declared := m.Dependencies()

	usage, err := NewAggregator(opts).CollectUsage(ctx, projectRoot)
	if err != nil {
		return nil, err
	}

	unused := make(map[string]struct{})
	for name := range declared {
		if _, ok := usage.Imports[name]; !ok {
			unused[name] = struct{}{}
		}
	}

	log.WithFields(map[string]interface{}{
		"declared": len(declared),
		"used":     len(usage.Imports),
		"unused":   len(unused),
	}).Info("Dependency diff complete")

	return &DiffResult{
		Used:         usage.Imports,
		Unused:       unused,
		SkippedFiles: usage.SkippedFiles,
	}, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
