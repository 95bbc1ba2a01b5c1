package toolchain

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"depsweep-go/pkg/logger"
)

// Runner executes an external command in dir and returns combined output.
type Runner func(dir string, name string, args ...string) (string, error)

// Linter drives the project's lint and format toolchain (ESLint and
// Prettier by contract; only the command shape is assumed, not tool
// behavior).
type Linter struct {
	run Runner
	log *logger.Logger
}

// NewLinter creates a linter collaborator.
func NewLinter() *Linter {
	return &Linter{
		run: execCommand,
		log: logger.GetLogger().WithField("component", "toolchain"),
	}
}

// SetRunner replaces the command runner. Used by tests.
func (l *Linter) SetRunner(run Runner) {
	l.run = run
}

// SetupAndRun installs the lint toolchain into the project and runs both
// the linter with autofix and the formatter over the whole tree.
func (l *Linter) SetupAndRun(projectRoot string) error {
	steps := []struct {
		name string
		args []string
	}{
		{"npm", []string{"install", "eslint", "prettier", "--save-dev"}},
		{"npx", []string{"eslint", "--fix", "."}},
		{"npx", []string{"prettier", "--write", "."}},
	}

	for _, step := range steps {
		l.log.WithField("command", step.name+" "+strings.Join(step.args, " ")).Info("Running toolchain step")
		if out, err := l.run(projectRoot, step.name, step.args...); err != nil {
			return fmt.Errorf("toolchain step %s %s failed: %w (%s)",
				step.name, strings.Join(step.args, " "), err, strings.TrimSpace(out))
		}
	}

	l.log.Info("Linting and formatting complete")
	return nil
}

func execCommand(dir string, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}
