package collector

import (
	"context"
	"os/exec"
	"time"
)

// Runner runs an external command and captures its stdout text. Probes
// depend on this interface so tests can feed canned output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner invokes real commands with a hard per-invocation timeout,
// so a hung tool stalls at most one tick instead of the collector
// forever.
type ExecRunner struct {
	Timeout time.Duration
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return exec.CommandContext(ctx, name, args...).Output()
}
