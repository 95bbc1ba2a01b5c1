package gitops

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"depsweep-go/pkg/logger"
)

// ErrGit marks failures of the version-control collaborator. Branch and
// commit operations that fail leave repository state that cannot be
// reasoned about, so callers must treat wrapped ErrGit as fatal.
var ErrGit = errors.New("git operation failed")

// Runner executes a git subcommand in dir and returns combined output.
// Tests inject a fake runner the same way HTTP clients are injected
// elsewhere in this codebase.
type Runner func(dir string, args ...string) (string, error)

// Client drives the local git repository for the fix pipeline.
type Client struct {
	dir string
	run Runner
	log *logger.Logger
}

// NewClient creates a git client rooted at dir.
func NewClient(dir string) *Client {
	return &Client{
		dir: dir,
		run: execGit,
		log: logger.GetLogger().WithField("component", "gitops"),
	}
}

// SetRunner replaces the command runner. Used by tests.
func (c *Client) SetRunner(run Runner) {
	c.run = run
}

// Init initializes a repository and creates the named base branch with an
// initial commit, so later branches have a commit to fork from.
func (c *Client) Init(baseBranch string) error {
	steps := [][]string{
		{"init"},
		{"checkout", "-b", baseBranch},
		{"add", "."},
		{"commit", "-m", "Initial import", "--allow-empty"},
	}
	for _, args := range steps {
		if _, err := c.git(args...); err != nil {
			return err
		}
	}
	c.log.WithField("branch", baseBranch).Info("Initialized repository")
	return nil
}

// CreateBranch creates and switches to a new branch forked from the
// current one.
func (c *Client) CreateBranch(name string) error {
	_, err := c.git("checkout", "-b", name)
	return err
}

// Checkout switches to an existing branch, discarding uncommitted
// changes. The force flag keeps a failed fix's working-tree edits from
// surviving the rollback.
func (c *Client) Checkout(name string) error {
	_, err := c.git("checkout", "--force", name)
	return err
}

// DeleteBranch force-deletes a branch.
func (c *Client) DeleteBranch(name string) error {
	_, err := c.git("branch", "-D", name)
	return err
}

// CommitAll stages every change and commits with the given message.
// Empty commits are allowed so that no-op fixes keep the pipeline's
// branch bookkeeping uniform.
func (c *Client) CommitAll(message string) error {
	if _, err := c.git("add", "."); err != nil {
		return err
	}
	_, err := c.git("commit", "-m", message, "--allow-empty")
	return err
}

// CurrentBranch returns the checked-out branch name.
func (c *Client) CurrentBranch() (string, error) {
	out, err := c.git("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *Client) git(args ...string) (string, error) {
	out, err := c.run(c.dir, args...)
	if err != nil {
		return out, fmt.Errorf("%w: git %s: %v (%s)", ErrGit, strings.Join(args, " "), err, strings.TrimSpace(out))
	}
	return out, nil
}

func execGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}
