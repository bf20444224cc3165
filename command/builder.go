package command

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/traffisense/core/errors"
)

const (
	// DefaultTimeout is the default command execution timeout
	DefaultTimeout = 2 * time.Minute

	// MaxTimeout is the maximum allowed timeout
	MaxTimeout = 10 * time.Minute
)

var (
	executablePattern = regexp.MustCompile(`^[a-zA-Z0-9_./+-]+$`)
	jobIDPattern      = regexp.MustCompile(`^[^/\\\x00]+$`)
)

// SafeBuilder provides secure command execution with validation
type SafeBuilder struct {
	defaultTimeout time.Duration
	validators     map[string]func(string) error
	executor       Executor
}

// NewSafeBuilder creates a new SafeBuilder instance with a RealExecutor
func NewSafeBuilder() *SafeBuilder {
	return NewSafeBuilderWithExecutor(RealExecutor{})
}

// NewSafeBuilderWithExecutor creates a new SafeBuilder with a custom Executor
func NewSafeBuilderWithExecutor(exec Executor) *SafeBuilder {
	return &SafeBuilder{
		defaultTimeout: DefaultTimeout,
		validators:     makeDefaultValidators(),
		executor:       exec,
	}
}

// makeDefaultValidators returns the default set of validators
func makeDefaultValidators() map[string]func(string) error {
	return map[string]func(string) error{
		"executable": validateExecutable,
		"fileName":   validateFileName,
		"mediaURL":   validateMediaURL,
		"jobID":      validateJobID,
	}
}

// validateExecutable ensures a program name carries no shell syntax
func validateExecutable(name string) error {
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if !executablePattern.MatchString(name) {
		return fmt.Errorf("invalid command name: %s", name)
	}
	return nil
}

// validateFileName ensures file paths are safe
func validateFileName(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	// Prevent directory traversal
	if strings.Contains(path, "..") {
		return fmt.Errorf("file path cannot contain '..'")
	}

	// Prevent command injection via shell metacharacters
	if strings.ContainsAny(path, ";|&$`") {
		return fmt.Errorf("file path contains invalid characters")
	}

	return nil
}

// validateMediaURL accepts http(s) and file URLs, or a plain local path
func validateMediaURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("media URL cannot be empty")
	}
	if strings.HasPrefix(raw, "-") {
		return fmt.Errorf("media URL cannot start with '-'")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid media URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "file":
		return nil
	case "":
		return validateFileName(raw)
	default:
		return fmt.Errorf("unsupported media URL scheme: %s", u.Scheme)
	}
}

// validateJobID ensures a job id names a single file
func validateJobID(id string) error {
	if id == "" || id == "." || id == ".." {
		return fmt.Errorf("invalid job id: %q", id)
	}
	if !jobIDPattern.MatchString(id) {
		return fmt.Errorf("job id cannot contain path separators: %s", id)
	}
	return nil
}

// Command represents a safe command configuration
type Command struct {
	parent   context.Context
	ctx      context.Context
	cancel   context.CancelFunc
	name     string
	args     []string
	timeout  time.Duration
	executor Executor
}

// Build creates a new command with validation
func (sb *SafeBuilder) Build(ctx context.Context, name string, args ...string) (*Command, error) {
	if err := validateExecutable(name); err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	c := &Command{
		parent:   ctx,
		name:     name,
		args:     args,
		executor: sb.executor,
	}
	return c.WithTimeout(sb.defaultTimeout), nil
}

// WithTimeout sets a custom timeout for the command
func (c *Command) WithTimeout(timeout time.Duration) *Command {
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.ctx, c.cancel = context.WithTimeout(c.parent, timeout)
	c.timeout = timeout
	return c
}

// Detached drops the timeout. The command then lives until it exits or the
// parent context ends, which suits interactive programs such as players.
func (c *Command) Detached() *Command {
	if c.cancel != nil {
		c.cancel()
	}
	c.ctx, c.cancel = context.WithCancel(c.parent)
	c.timeout = 0
	return c
}

// Resolve returns the path name runs from, or a command-not-found error.
func (sb *SafeBuilder) Resolve(name string) (string, error) {
	if err := validateExecutable(name); err != nil {
		return "", errors.InvalidInput(err.Error())
	}
	path, err := sb.executor.LookPath(name)
	if err != nil {
		return "", errors.New(errors.ErrCodeCommandNotFound, fmt.Sprintf("command not found: %s", name)).
			WithDetail("command", name)
	}
	return path, nil
}

// Validate validates specific arguments
func (sb *SafeBuilder) Validate(argType string, value string) error {
	validator, exists := sb.validators[argType]
	if !exists {
		return fmt.Errorf("no validator for argument type: %s", argType)
	}

	return validator(value)
}

// Exec creates and returns an exec.Cmd
func (c *Command) Exec() *exec.Cmd {
	return c.executor.CommandContext(c.ctx, c.name, c.args...) //nolint:gosec // SafeBuilder provides validation
}

// String renders the command line for logs.
func (c *Command) String() string {
	return strings.Join(append([]string{c.name}, c.args...), " ")
}

// Run executes the command and waits for it.
func (c *Command) Run() error {
	defer c.cancel()
	if err := c.Exec().Run(); err != nil {
		return errors.CommandFailed(c.name, err)
	}
	return nil
}

// Start launches the command without waiting. The process is reaped in the
// background and onExit, when set, receives its result.
func (c *Command) Start(onExit func(error)) error {
	cmd := c.Exec()
	if err := cmd.Start(); err != nil {
		c.cancel()
		if stderrors.Is(err, exec.ErrNotFound) {
			return errors.New(errors.ErrCodeCommandNotFound, fmt.Sprintf("command not found: %s", c.name)).
				WithDetail("command", c.name)
		}
		return errors.CommandFailed(c.name, err)
	}
	go func() {
		err := cmd.Wait()
		c.cancel()
		if onExit != nil {
			onExit(err)
		}
	}()
	return nil
}
