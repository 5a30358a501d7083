package kagglecli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/yungbote/kernelpilot-backend/internal/platform/apierr"
	"github.com/yungbote/kernelpilot-backend/internal/platform/logger"
)

// Client is the glue around the `kaggle` binary. The CLI is the only way
// this service talks to Kaggle; its stdout is an external wire format that
// the callers parse, never reimplement.
//
// REQUIRED BINARY in runtime: kaggle (with credentials configured in the
// environment, typically ~/.kaggle/kaggle.json).
type Client interface {
	AssertReady(ctx context.Context) error

	DatasetsList(ctx context.Context, searchTerm, sortBy string) (string, error)
	DatasetsDownload(ctx context.Context, datasetID, destDir string, unzip bool) error
	// DatasetsMetadata writes dataset-metadata.json into destDir.
	DatasetsMetadata(ctx context.Context, datasetID, destDir string) error

	KernelsPush(ctx context.Context, dir string) error
	KernelsStatus(ctx context.Context, kernelID string) (string, error)
	KernelsOutput(ctx context.Context, kernelID, destDir string) error
}

type client struct {
	log     *logger.Logger
	binary  string
	timeout time.Duration
}

func New(baseLog *logger.Logger, binary string, timeout time.Duration) Client {
	if binary == "" {
		binary = "kaggle"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &client{
		log:     baseLog.With("client", "KaggleCLI"),
		binary:  binary,
		timeout: timeout,
	}
}

func (c *client) AssertReady(ctx context.Context) error {
	if _, err := exec.LookPath(c.binary); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", c.binary, err)
	}
	return nil
}

// run executes one CLI call with the configured timeout and maps a non-zero
// exit onto ExternalToolFailed carrying the combined output.
func (c *client) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		c.log.Warn("kaggle CLI call failed", "args", args, "error", err, "output", string(out))
		return "", apierr.Newf(http.StatusInternalServerError, apierr.CodeExternalToolFailed,
			"kaggle %v: %v; out=%s", args, err, string(out))
	}
	return string(out), nil
}

func (c *client) DatasetsList(ctx context.Context, searchTerm, sortBy string) (string, error) {
	if sortBy == "" {
		sortBy = "hottest"
	}
	return c.run(ctx, "datasets", "list", "--search", searchTerm, "--sort-by", sortBy)
}

func (c *client) DatasetsDownload(ctx context.Context, datasetID, destDir string, unzip bool) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("mkdir destDir: %w", err)
	}
	args := []string{"datasets", "download", datasetID, "-p", destDir}
	if unzip {
		args = append(args, "--unzip")
	}
	_, err := c.run(ctx, args...)
	return err
}

func (c *client) DatasetsMetadata(ctx context.Context, datasetID, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("mkdir destDir: %w", err)
	}
	_, err := c.run(ctx, "datasets", "metadata", datasetID, "-p", destDir)
	return err
}

func (c *client) KernelsPush(ctx context.Context, dir string) error {
	_, err := c.run(ctx, "kernels", "push", "-p", dir)
	return err
}

func (c *client) KernelsStatus(ctx context.Context, kernelID string) (string, error) {
	return c.run(ctx, "kernels", "status", kernelID)
}

func (c *client) KernelsOutput(ctx context.Context, kernelID, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("mkdir destDir: %w", err)
	}
	_, err := c.run(ctx, "kernels", "output", kernelID, "-p", destDir)
	return err
}
