package organizer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"depsweep-go/pkg/logger"
)

// Category maps a folder name to the filename patterns routed into it.
// A pattern matches either as a substring of the filename or as a suffix.
type Category struct {
	Folder   string
	Patterns []string
}

// DefaultCategories is the standard React project layout.
func DefaultCategories() []Category {
	return []Category{
		{"components", []string{".jsx", ".tsx"}},
		{"hooks", []string{"use"}},
		{"pages", []string{"Page", "pages"}},
		{"styles", []string{".css", ".scss", ".less"}},
		{"utils", []string{"utils", "helper"}},
		{"tests", []string{".test.js", ".spec.js"}},
		{"assets", []string{".png", ".jpg", ".svg", ".gif"}},
		{"configs", []string{".json", ".yaml", ".yml"}},
		{"docs", []string{".md", ".markdown"}},
	}
}

// Organizer moves project files into category folders by filename
// pattern. Pattern matching, like import scanning, is a heuristic.
type Organizer struct {
	categories []Category
	ignoreDirs map[string]struct{}
	log        *logger.Logger
}

// NewOrganizer creates an organizer with the given categories; ignored
// directory names are never descended into or reorganized.
func NewOrganizer(categories []Category, ignoreDirs []string) *Organizer {
	ignore := make(map[string]struct{}, len(ignoreDirs))
	for _, d := range ignoreDirs {
		ignore[d] = struct{}{}
	}
	return &Organizer{
		categories: categories,
		ignoreDirs: ignore,
		log:        logger.GetLogger().WithField("component", "organizer"),
	}
}

// Folders returns the category folder names, sorted. This is the
// category list recorded in the cleanup report.
func (o *Organizer) Folders() []string {
	folders := make([]string, 0, len(o.categories))
	for _, c := range o.categories {
		folders = append(folders, c.Folder)
	}
	sort.Strings(folders)
	return folders
}

// Organize walks basePath and moves each matching file into its category
// folder directly under basePath. Files already in their category folder
// stay put. Returns the number of files moved.
func (o *Organizer) Organize(basePath string) (int, error) {
	type move struct {
		from, to string
	}
	var moves []move

	err := filepath.WalkDir(basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if _, ok := o.ignoreDirs[d.Name()]; ok && path != basePath {
				return filepath.SkipDir
			}
			return nil
		}

		folder, ok := o.categorize(d.Name())
		if !ok {
			return nil
		}
		target := filepath.Join(basePath, folder)
		if filepath.Dir(path) == target {
			return nil
		}
		moves = append(moves, move{from: path, to: filepath.Join(target, d.Name())})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk %s: %w", basePath, err)
	}

	moved := 0
	for _, mv := range moves {
		if err := os.MkdirAll(filepath.Dir(mv.to), 0755); err != nil {
			return moved, fmt.Errorf("failed to create category folder: %w", err)
		}
		if err := os.Rename(mv.from, mv.to); err != nil {
			// A collision or cross-device move is logged and skipped, the
			// rest of the pass continues.
			o.log.WithError(err).WithField("file", mv.from).Warn("Could not move file")
			continue
		}
		moved++
	}

	o.log.WithField("moved", moved).Info("File organization complete")
	return moved, nil
}

// categorize returns the first category whose patterns match the
// filename, in declaration order.
func (o *Organizer) categorize(name string) (string, bool) {
	for _, c := range o.categories {
		for _, p := range c.Patterns {
			if strings.Contains(name, p) || strings.HasSuffix(name, p) {
				return c.Folder, true
			}
		}
	}
	return "", false
}
