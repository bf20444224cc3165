package command

import (
	"context"
	"os/exec"
)

// Executor creates processes. Tests swap it to control PATH lookups and
// the programs that run.
type Executor interface {
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
	// LookPath resolves name the way CommandContext will.
	LookPath(name string) (string, error)
}

// RealExecutor runs programs through os/exec.
type RealExecutor struct{}

func (RealExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

func (RealExecutor) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
