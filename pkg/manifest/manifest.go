package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the manifest file expected at the project root.
const FileName = "package.json"

// Manifest is a loaded package.json. Fields other than the dependency map
// are carried through writes untouched.
type Manifest struct {
	path string
	raw  map[string]json.RawMessage
	deps map[string]string
}

// Path returns the manifest location for a project root.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, FileName)
}

// Exists reports whether a manifest is present at the project root.
func Exists(projectRoot string) bool {
	_, err := os.Stat(Path(projectRoot))
	return err == nil
}

// Load reads and parses the manifest at the project root.
func Load(projectRoot string) (*Manifest, error) {
	path := Path(projectRoot)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	deps := make(map[string]string)
	if depsRaw, ok := raw["dependencies"]; ok {
		if err := json.Unmarshal(depsRaw, &deps); err != nil {
			return nil, fmt.Errorf("failed to parse dependencies in %s: %w", path, err)
		}
	}

	return &Manifest{path: path, raw: raw, deps: deps}, nil
}

// Dependencies returns the declared dependency names as a set.
func (m *Manifest) Dependencies() map[string]struct{} {
	set := make(map[string]struct{}, len(m.deps))
	for name := range m.deps {
		set[name] = struct{}{}
	}
	return set
}

// HasDependency reports whether the named dependency is declared.
func (m *Manifest) HasDependency(name string) bool {
	_, ok := m.deps[name]
	return ok
}

// RemoveDependency deletes the named dependency from the declared set.
// Returns false if the dependency was not declared.
func (m *Manifest) RemoveDependency(name string) bool {
	if _, ok := m.deps[name]; !ok {
		return false
	}
	delete(m.deps, name)
	return true
}

// Save writes the manifest back to disk, preserving fields it did not touch.
func (m *Manifest) Save() error {
	depsRaw, err := json.Marshal(m.deps)
	if err != nil {
		return fmt.Errorf("failed to marshal dependencies: %w", err)
	}
	m.raw["dependencies"] = depsRaw

	data, err := json.MarshalIndent(m.raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", m.path, err)
	}
	return nil
}

// RemoveFromProject loads the manifest, removes one dependency and saves.
// It is the mechanical remedy applied by the fix pipeline.
func RemoveFromProject(projectRoot, name string) error {
	m, err := Load(projectRoot)
	if err != nil {
		return err
	}
	if !m.RemoveDependency(name) {
		return fmt.Errorf("dependency %q not declared in %s", name, m.path)
	}
	return m.Save()
}
