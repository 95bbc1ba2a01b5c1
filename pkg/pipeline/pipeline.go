package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"

	"depsweep-go/pkg/logger"
	"depsweep-go/pkg/manifest"
	"depsweep-go/pkg/validate"
)

// KindUnusedDependency tags descriptors whose remedy is removing one
// dependency from the project manifest.
const KindUnusedDependency = "unused_dependency"

// FixDescriptor is one queued fix candidate. Immutable once enqueued.
type FixDescriptor struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	// Dependency is the kind-specific payload for unused_dependency.
	Dependency string `json:"dependency,omitempty"`
}

// Status is the terminal state of one descriptor.
type Status string

const (
	StatusFixed    Status = "success"
	StatusReverted Status = "reverted"
)

// Outcome records how one descriptor ended.
type Outcome struct {
	Descriptor   FixDescriptor `json:"descriptor"`
	Branch       string        `json:"branch"`
	Status       Status        `json:"status"`
	ManifestDiff string        `json:"manifest_diff,omitempty"`
}

// State is the pipeline's rollback anchor, threaded through every step as
// a value. LastWorkingBranch only ever advances after a validated commit,
// so checking it out always yields a state that passed validation (or the
// pristine base branch).
type State struct {
	LastWorkingBranch string
	Index             int
}

// Git is the subset of the version-control collaborator the pipeline
// needs. Any failure from it is pipeline-fatal.
type Git interface {
	CreateBranch(name string) error
	Checkout(name string) error
	DeleteBranch(name string) error
	CommitAll(message string) error
}

// Validator judges whether the working tree is still viable after a fix.
type Validator interface {
	Validate(ctx context.Context, projectRoot string) validate.Outcome
}

// Pipeline consumes a fix queue in strict order, trialing each fix on a
// disposable branch forked from the current last working branch.
type Pipeline struct {
	projectRoot  string
	branchPrefix string
	git          Git
	validator    Validator
	log          *logger.Logger
}

// New creates a pipeline over the given project root.
func New(projectRoot string, git Git, validator Validator) *Pipeline {
	return &Pipeline{
		projectRoot:  projectRoot,
		branchPrefix: "fix",
		git:          git,
		validator:    validator,
		log:          logger.GetLogger().WithField("component", "fix_pipeline"),
	}
}

// SetBranchPrefix changes the prefix used for fix branch names.
func (p *Pipeline) SetBranchPrefix(prefix string) {
	p.branchPrefix = prefix
}

// BaseBranch returns the pristine base branch name for the configured
// prefix.
func (p *Pipeline) BaseBranch() string {
	return p.branchPrefix + "_base"
}

// Run processes the descriptor queue starting from baseBranch. It returns
// the per-descriptor outcomes in queue order plus the final state. A
// validation failure reverts that one descriptor and continues; a git
// failure aborts immediately with the outcomes gathered so far, leaving
// the repository for manual inspection.
func (p *Pipeline) Run(ctx context.Context, queue []FixDescriptor, baseBranch string) ([]Outcome, State, error) {
	state := State{LastWorkingBranch: baseBranch}
	outcomes := make([]Outcome, 0, len(queue))

	for i, desc := range queue {
		state.Index = i
		if err := ctx.Err(); err != nil {
			return outcomes, state, err
		}

		outcome, next, err := p.processOne(ctx, desc, i, state)
		if err != nil {
			return outcomes, state, err
		}
		outcomes = append(outcomes, outcome)
		state = next
	}

	p.log.WithFields(map[string]interface{}{
		"processed":    len(outcomes),
		"last_working": state.LastWorkingBranch,
	}).Info("Fix queue processed")
	return outcomes, state, nil
}

// processOne runs the branch-create, apply, validate, commit-or-revert
// sequence for a single descriptor. The returned state advances only when
// the fix was committed.
func (p *Pipeline) processOne(ctx context.Context, desc FixDescriptor, index int, state State) (Outcome, State, error) {
	branch := fmt.Sprintf("%s_%d", p.branchPrefix, index+1)
	log := p.log.WithFields(map[string]interface{}{
		"branch":  branch,
		"message": desc.Message,
	})
	log.Info("Processing fix")

	if err := p.git.CreateBranch(branch); err != nil {
		return Outcome{}, state, err
	}

	before := p.readManifest()
	applied, applyErr := p.apply(desc)
	diff := ""
	if applied {
		diff = unifiedDiff(before, p.readManifest())
	}

	valid := false
	if applyErr != nil {
		// A fix that cannot be applied is treated like one that failed
		// validation: revert and continue with the next descriptor.
		log.WithError(applyErr).Warn("Fix could not be applied")
	} else {
		result := p.validator.Validate(ctx, p.projectRoot)
		valid = result.Passed
	}

	if !valid {
		log.Warn("Fix failed, reverting branch")
		if err := p.git.Checkout(state.LastWorkingBranch); err != nil {
			return Outcome{}, state, err
		}
		if err := p.git.DeleteBranch(branch); err != nil {
			return Outcome{}, state, err
		}
		return Outcome{Descriptor: desc, Branch: branch, Status: StatusReverted}, state, nil
	}

	if err := p.git.CommitAll("Fix: " + desc.Message); err != nil {
		return Outcome{}, state, err
	}

	log.Info("Fix validated and committed")
	return Outcome{Descriptor: desc, Branch: branch, Status: StatusFixed, ManifestDiff: diff},
		State{LastWorkingBranch: branch, Index: index}, nil
}

// apply executes the kind-specific mechanical remedy. Unrecognized kinds
// are passed through unchanged; they validate against the unmodified
// tree.
func (p *Pipeline) apply(desc FixDescriptor) (bool, error) {
	switch desc.Kind {
	case KindUnusedDependency:
		if desc.Dependency == "" {
			return false, fmt.Errorf("descriptor %q has no dependency payload", desc.Message)
		}
		if err := manifest.RemoveFromProject(p.projectRoot, desc.Dependency); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, nil
	}
}

func (p *Pipeline) readManifest() string {
	data, err := os.ReadFile(manifest.Path(p.projectRoot))
	if err != nil {
		return ""
	}
	return string(data)
}

func unifiedDiff(before, after string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: manifest.FileName,
		ToFile:   manifest.FileName,
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return diff
}
