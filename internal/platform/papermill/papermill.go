package papermill

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/yungbote/kernelpilot-backend/internal/platform/logger"
)

// Engine executes a notebook document end to end. The engine is a black
// box: a failure only matters as an occurrence plus diagnostic text, its
// structure is never interpreted.
type Engine interface {
	AssertReady(ctx context.Context) error
	Execute(ctx context.Context, inputPath, outputPath string) error
}

// ExecutionError carries the engine's diagnostic for the rollback path.
type ExecutionError struct {
	Diagnostic string
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("notebook execution failed: %v; %s", e.Err, e.Diagnostic)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

type engine struct {
	log     *logger.Logger
	binary  string
	timeout time.Duration
}

func New(baseLog *logger.Logger, binary string, timeout time.Duration) Engine {
	if binary == "" {
		binary = "papermill"
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &engine{
		log:     baseLog.With("engine", "Papermill"),
		binary:  binary,
		timeout: timeout,
	}
}

func (e *engine) AssertReady(ctx context.Context) error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", e.binary, err)
	}
	return nil
}

func (e *engine) Execute(ctx context.Context, inputPath, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary, inputPath, outputPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		e.log.Warn("papermill execution failed", "input", inputPath, "error", err)
		return &ExecutionError{Diagnostic: string(out), Err: err}
	}
	return nil
}
