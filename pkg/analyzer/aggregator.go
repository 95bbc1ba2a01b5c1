package analyzer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"depsweep-go/pkg/logger"
	"depsweep-go/pkg/scanner"
	"depsweep-go/pkg/worker"
)

// Options control the tree walk performed by the aggregator.
type Options struct {
	// IgnoreDirs are directory names excluded by exact path-segment match.
	IgnoreDirs []string
	// IgnoreFiles are file names excluded by exact match.
	IgnoreFiles []string
	// Extensions are the source file suffixes scanned for imports.
	Extensions []string
	// Workers bounds the scan fan-out; zero means the pool default.
	Workers int
}

// DefaultOptions mirrors the ignore and extension sets of a typical
// JS/TS project tree.
func DefaultOptions() Options {
	return Options{
		IgnoreDirs:  []string{"node_modules", ".git", "build", "dist", "__pycache__"},
		IgnoreFiles: []string{".DS_Store", "package-lock.json", "yarn.lock"},
		Extensions:  []string{".js", ".jsx", ".ts", ".tsx"},
	}
}

// Usage is the project-wide result of one aggregation pass.
type Usage struct {
	// Imports is the union of every per-file import set.
	Imports map[string]struct{}
	// SkippedFiles lists files that could not be decoded and contributed
	// an empty set, sorted for deterministic reporting.
	SkippedFiles []string
	// FilesScanned counts qualifying source files visited.
	FilesScanned int
}

// Aggregator fans the import scanner out over a project tree and merges
// per-file results into one used-identifier set.
type Aggregator struct {
	opts Options
	log  *logger.Logger
}

// NewAggregator creates an aggregator with the given walk options.
func NewAggregator(opts Options) *Aggregator {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultOptions().Extensions
	}
	return &Aggregator{
		opts: opts,
		log:  logger.GetLogger().WithField("component", "aggregator"),
	}
}

// CollectUsage walks the project root and returns the merged import set.
// Per-file scans run on a bounded worker pool; results are merged after a
// join barrier, so scan ordering never affects the union.
func (a *Aggregator) CollectUsage(ctx context.Context, projectRoot string) (*Usage, error) {
	files, err := a.listSourceFiles(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", projectRoot, err)
	}

	a.log.WithFields(map[string]interface{}{
		"root":  projectRoot,
		"files": len(files),
	}).Debug("Scanning source files for imports")

	results := make([]scanner.FileResult, len(files))

	pool := worker.NewPool(worker.PoolConfig{MaxWorkers: a.opts.Workers})
	if err := pool.Start(); err != nil {
		return nil, err
	}
	defer pool.Stop()

	for i, path := range files {
		i, path := i, path
		if err := pool.SubmitFunc(path, func(ctx context.Context) error {
			results[i] = scanner.ScanFile(path)
			return nil
		}); err != nil {
			return nil, err
		}
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	usage := &Usage{Imports: make(map[string]struct{}), FilesScanned: len(files)}
	for _, res := range results {
		if res.Skipped {
			usage.SkippedFiles = append(usage.SkippedFiles, res.Path)
			continue
		}
		for name := range res.Imports {
			usage.Imports[name] = struct{}{}
		}
	}
	sort.Strings(usage.SkippedFiles)

	return usage, nil
}

// SourceFiles lists the files a scan of root would visit, in walk order.
func (a *Aggregator) SourceFiles(root string) ([]string, error) {
	return a.listSourceFiles(root)
}

// listSourceFiles collects qualifying source files under root, honoring
// the ignore sets and a root .gitignore when present.
func (a *Aggregator) listSourceFiles(root string) ([]string, error) {
	matcher := a.loadGitignore(root)

	ignoreDirs := make(map[string]struct{}, len(a.opts.IgnoreDirs))
	for _, d := range a.opts.IgnoreDirs {
		ignoreDirs[d] = struct{}{}
	}
	ignoreFiles := make(map[string]struct{}, len(a.opts.IgnoreFiles))
	for _, f := range a.opts.IgnoreFiles {
		ignoreFiles[f] = struct{}{}
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are a silent skip, same as files.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			if _, ok := ignoreDirs[d.Name()]; ok {
				return filepath.SkipDir
			}
			if matcher != nil && matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if _, ok := ignoreFiles[d.Name()]; ok {
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}
		if !a.hasSourceExtension(d.Name()) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

func (a *Aggregator) hasSourceExtension(name string) bool {
	for _, ext := range a.opts.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func (a *Aggregator) loadGitignore(root string) *ignore.GitIgnore {
	matcher, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return matcher
}
