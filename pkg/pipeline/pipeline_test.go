package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"depsweep-go/pkg/manifest"
	"depsweep-go/pkg/validate"
)

// fakeGit simulates the branch/commit collaborator by snapshotting the
// manifest per branch, enough to observe rollback correctness.
type fakeGit struct {
	t       *testing.T
	root    string
	commits map[string]string // branch -> committed manifest content
	current string
	calls   []string
	failOp  string
}

func newFakeGit(t *testing.T, root, base string) *fakeGit {
	g := &fakeGit{t: t, root: root, commits: map[string]string{}, current: base}
	g.commits[base] = g.readManifest()
	return g
}

func (g *fakeGit) readManifest() string {
	data, _ := os.ReadFile(manifest.Path(g.root))
	return string(data)
}

func (g *fakeGit) writeManifest(content string) {
	if err := os.WriteFile(manifest.Path(g.root), []byte(content), 0644); err != nil {
		g.t.Fatal(err)
	}
}

func (g *fakeGit) record(op, name string) error {
	g.calls = append(g.calls, op+" "+name)
	if g.failOp == op {
		return fmt.Errorf("simulated %s failure", op)
	}
	return nil
}

func (g *fakeGit) CreateBranch(name string) error {
	if err := g.record("create", name); err != nil {
		return err
	}
	g.commits[name] = g.commits[g.current]
	g.current = name
	return nil
}

func (g *fakeGit) Checkout(name string) error {
	if err := g.record("checkout", name); err != nil {
		return err
	}
	g.current = name
	g.writeManifest(g.commits[name])
	return nil
}

func (g *fakeGit) DeleteBranch(name string) error {
	if err := g.record("delete", name); err != nil {
		return err
	}
	delete(g.commits, name)
	return nil
}

func (g *fakeGit) CommitAll(message string) error {
	if err := g.record("commit", message); err != nil {
		return err
	}
	g.commits[g.current] = g.readManifest()
	return nil
}

// fakeValidator returns scripted pass/fail results in order.
type fakeValidator struct {
	results []bool
	calls   int
}

func (v *fakeValidator) Validate(ctx context.Context, projectRoot string) validate.Outcome {
	passed := true
	if v.calls < len(v.results) {
		passed = v.results[v.calls]
	}
	v.calls++
	return validate.Outcome{Passed: passed}
}

func setupProject(t *testing.T, deps string) string {
	t.Helper()
	root := t.TempDir()
	content := `{"name": "demo", "dependencies": ` + deps + `}`
	if err := os.WriteFile(filepath.Join(root, manifest.FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestRunCommitsValidatedFix(t *testing.T) {
	root := setupProject(t, `{"left-pad": "^1.3.0", "lodash": "^4.17.21"}`)
	git := newFakeGit(t, root, "fix_base")
	v := &fakeValidator{results: []bool{true}}

	p := New(root, git, v)
	queue := []FixDescriptor{{
		Kind:       KindUnusedDependency,
		Message:    "Remove unused dependency: left-pad",
		Dependency: "left-pad",
	}}

	outcomes, state, err := p.Run(context.Background(), queue, "fix_base")
	if err != nil {
		t.Fatal(err)
	}

	if len(outcomes) != 1 || outcomes[0].Status != StatusFixed {
		t.Fatalf("outcomes = %+v, want one success", outcomes)
	}
	if state.LastWorkingBranch != "fix_1" {
		t.Errorf("LastWorkingBranch = %q, want fix_1", state.LastWorkingBranch)
	}
	if !strings.Contains(outcomes[0].ManifestDiff, "left-pad") {
		t.Errorf("manifest diff %q should mention left-pad", outcomes[0].ManifestDiff)
	}

	m, err := manifest.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if m.HasDependency("left-pad") {
		t.Error("left-pad still declared after committed fix")
	}
	if !m.HasDependency("lodash") {
		t.Error("lodash removed unexpectedly")
	}
}

func TestRunRevertsFailedFix(t *testing.T) {
	root := setupProject(t, `{"left-pad": "^1.3.0"}`)
	git := newFakeGit(t, root, "fix_base")
	before := git.readManifest()
	v := &fakeValidator{results: []bool{false}}

	p := New(root, git, v)
	queue := []FixDescriptor{{
		Kind:       KindUnusedDependency,
		Message:    "Remove unused dependency: left-pad",
		Dependency: "left-pad",
	}}

	outcomes, state, err := p.Run(context.Background(), queue, "fix_base")
	if err != nil {
		t.Fatal(err)
	}

	if len(outcomes) != 1 || outcomes[0].Status != StatusReverted {
		t.Fatalf("outcomes = %+v, want one reverted", outcomes)
	}
	if state.LastWorkingBranch != "fix_base" {
		t.Errorf("LastWorkingBranch = %q, want fix_base", state.LastWorkingBranch)
	}
	if _, exists := git.commits["fix_1"]; exists {
		t.Error("failed fix branch was not deleted")
	}
	if got := git.readManifest(); got != before {
		t.Errorf("manifest after revert = %s, want byte-identical to base", got)
	}
}

func TestRunFailuresDoNotCompound(t *testing.T) {
	root := setupProject(t, `{"a": "1", "b": "1", "c": "1"}`)
	git := newFakeGit(t, root, "fix_base")
	v := &fakeValidator{results: []bool{true, false, true}}

	p := New(root, git, v)
	queue := []FixDescriptor{
		{Kind: KindUnusedDependency, Message: "Remove unused dependency: a", Dependency: "a"},
		{Kind: KindUnusedDependency, Message: "Remove unused dependency: b", Dependency: "b"},
		{Kind: KindUnusedDependency, Message: "Remove unused dependency: c", Dependency: "c"},
	}

	outcomes, state, err := p.Run(context.Background(), queue, "fix_base")
	if err != nil {
		t.Fatal(err)
	}

	wantStatus := []Status{StatusFixed, StatusReverted, StatusFixed}
	for i, w := range wantStatus {
		if outcomes[i].Status != w {
			t.Errorf("outcome %d = %s, want %s", i, outcomes[i].Status, w)
		}
	}
	if state.LastWorkingBranch != "fix_3" {
		t.Errorf("LastWorkingBranch = %q, want fix_3", state.LastWorkingBranch)
	}

	// The failed middle fix must leave no residue: a and c removed, b kept.
	m, err := manifest.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if m.HasDependency("a") || m.HasDependency("c") {
		t.Error("validated removals missing from final manifest")
	}
	if !m.HasDependency("b") {
		t.Error("reverted removal leaked into final manifest")
	}

	// fix_2 forked from fix_1, not from base, and fix_3 forked after the
	// fix_2 revert went back to fix_1.
	joined := strings.Join(git.calls, "; ")
	if !strings.Contains(joined, "checkout fix_1; delete fix_2; create fix_3") {
		t.Errorf("unexpected git sequence: %s", joined)
	}
}

func TestRunUnknownKindPassesThrough(t *testing.T) {
	root := setupProject(t, `{"a": "1"}`)
	git := newFakeGit(t, root, "fix_base")
	before := git.readManifest()
	v := &fakeValidator{results: []bool{true}}

	p := New(root, git, v)
	queue := []FixDescriptor{{Kind: "large_file", Message: "Large file: App.jsx"}}

	outcomes, _, err := p.Run(context.Background(), queue, "fix_base")
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Status != StatusFixed {
		t.Errorf("unknown kind with passing validation should commit, got %s", outcomes[0].Status)
	}
	if outcomes[0].ManifestDiff != "" {
		t.Errorf("no change applied, diff should be empty, got %q", outcomes[0].ManifestDiff)
	}
	if got := git.readManifest(); got != before {
		t.Error("unknown kind must not modify the manifest")
	}
}

func TestRunApplyErrorReverts(t *testing.T) {
	root := setupProject(t, `{"a": "1"}`)
	git := newFakeGit(t, root, "fix_base")
	v := &fakeValidator{}

	p := New(root, git, v)
	queue := []FixDescriptor{{
		Kind:       KindUnusedDependency,
		Message:    "Remove unused dependency: ghost",
		Dependency: "ghost",
	}}

	outcomes, state, err := p.Run(context.Background(), queue, "fix_base")
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Status != StatusReverted {
		t.Errorf("unapplied fix should revert, got %s", outcomes[0].Status)
	}
	if state.LastWorkingBranch != "fix_base" {
		t.Errorf("state advanced on unapplied fix: %q", state.LastWorkingBranch)
	}
	if v.calls != 0 {
		t.Error("validation should be skipped when apply fails")
	}
}

func TestRunGitFailureIsFatal(t *testing.T) {
	root := setupProject(t, `{"a": "1"}`)
	git := newFakeGit(t, root, "fix_base")
	git.failOp = "commit"
	v := &fakeValidator{results: []bool{true, true}}

	p := New(root, git, v)
	queue := []FixDescriptor{
		{Kind: KindUnusedDependency, Message: "Remove unused dependency: a", Dependency: "a"},
		{Kind: "noop", Message: "never reached"},
	}

	outcomes, _, err := p.Run(context.Background(), queue, "fix_base")
	if err == nil {
		t.Fatal("expected fatal error from git collaborator")
	}
	if !strings.Contains(err.Error(), "simulated commit failure") {
		t.Errorf("error %v should surface the git failure", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("no outcome should be recorded for the aborted descriptor, got %+v", outcomes)
	}
}

func TestRunCancelledContextStops(t *testing.T) {
	root := setupProject(t, `{"a": "1"}`)
	git := newFakeGit(t, root, "fix_base")
	v := &fakeValidator{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(root, git, v)
	outcomes, _, err := p.Run(ctx, []FixDescriptor{{Kind: "noop", Message: "x"}}, "fix_base")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("no descriptor should run after cancellation, got %+v", outcomes)
	}
}
