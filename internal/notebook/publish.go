package notebook

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/kernelpilot-backend/internal/data/repos"
	"github.com/yungbote/kernelpilot-backend/internal/domain"
	"github.com/yungbote/kernelpilot-backend/internal/platform/apierr"
	"github.com/yungbote/kernelpilot-backend/internal/platform/kagglecli"
	"github.com/yungbote/kernelpilot-backend/internal/platform/keylock"
	"github.com/yungbote/kernelpilot-backend/internal/platform/logger"
)

// kernelMetadata is the manifest the remote platform requires beside the
// document. All fields are fixed or derived from the notebook name.
type kernelMetadata struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	CodeFile       string `json:"code_file"`
	Language       string `json:"language"`
	KernelType     string `json:"kernel_type"`
	IsPrivate      bool   `json:"is_private"`
	EnableGPU      bool   `json:"enable_gpu"`
	EnableInternet bool   `json:"enable_internet"`
}

// Publisher pushes a validated document to the remote platform and polls
// for a terminal remote status. Publish never mutates the local document
// store.
type Publisher interface {
	Publish(ctx context.Context, name string) error
}

type publisher struct {
	log      *logger.Logger
	store    Store
	cli      kagglecli.Client
	locks    *keylock.KeyLock
	runs     repos.RunRecordRepo
	username string
	interval time.Duration
	maxWait  time.Duration
}

func NewPublisher(baseLog *logger.Logger, store Store, cli kagglecli.Client, locks *keylock.KeyLock, runs repos.RunRecordRepo, username string, interval, maxWait time.Duration) Publisher {
	if interval <= 0 {
		interval = 20 * time.Second
	}
	if maxWait <= 0 {
		maxWait = 30 * time.Minute
	}
	return &publisher{
		log:      baseLog.With("service", "NotebookPublisher"),
		store:    store,
		cli:      cli,
		locks:    locks,
		runs:     runs,
		username: username,
		interval: interval,
		maxWait:  maxWait,
	}
}

// Publish holds the per-name lock for its whole duration, so a concurrent
// mutation cannot change what gets pushed mid-poll.
func (p *publisher) Publish(ctx context.Context, name string) error {
	p.locks.Lock(name)
	defer p.locks.Unlock(name)

	if !p.store.Exists(name) {
		return apierr.Newf(http.StatusNotFound, apierr.CodeNotFound,
			"notebook %s not found", name)
	}
	if err := p.writeMetadata(name); err != nil {
		p.record(ctx, name, domain.RunOutcomeFailed, err.Error())
		return apierr.Newf(http.StatusInternalServerError, apierr.CodePublishFailed,
			"cannot write kernel metadata: %v", err)
	}

	if err := p.cli.KernelsPush(ctx, p.store.Dir(name)); err != nil {
		p.record(ctx, name, domain.RunOutcomeFailed, err.Error())
		return apierr.New(http.StatusInternalServerError, apierr.CodePublishFailed, err)
	}
	p.log.Info("Pushed notebook, polling for completion", "notebook", name)

	kernelID := p.username + "/" + name
	if err := p.pollUntilDone(ctx, kernelID); err != nil {
		p.record(ctx, name, outcomeForPollError(err), err.Error())
		return err
	}

	outputsDir := filepath.Join(p.store.Dir(name), "outputs")
	if err := p.cli.KernelsOutput(ctx, kernelID, outputsDir); err != nil {
		p.record(ctx, name, domain.RunOutcomeFailed, err.Error())
		return apierr.New(http.StatusInternalServerError, apierr.CodePublishFailed, err)
	}

	p.log.Info("Notebook published", "notebook", name, "outputs", outputsDir)
	p.record(ctx, name, domain.RunOutcomePublished, "")
	return nil
}

// pollUntilDone queries remote status at a fixed interval until the status
// text signals completion or failure, bounded by the max wall-clock wait.
func (p *publisher) pollUntilDone(ctx context.Context, kernelID string) error {
	deadline := time.Now().Add(p.maxWait)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		status, err := p.cli.KernelsStatus(ctx, kernelID)
		if err != nil {
			return apierr.New(http.StatusInternalServerError, apierr.CodePublishFailed, err)
		}
		lower := strings.ToLower(strings.TrimSpace(status))
		p.log.Debug("Remote status", "kernel", kernelID, "status", lower)

		switch {
		case strings.Contains(lower, "complete"):
			return nil
		case strings.Contains(lower, "error"), strings.Contains(lower, "failed"):
			return apierr.Newf(http.StatusInternalServerError, apierr.CodePublishFailed,
				"remote execution failed: %s", status)
		}

		if time.Now().After(deadline) {
			return apierr.Newf(http.StatusInternalServerError, apierr.CodePublishTimedOut,
				"remote execution still %q after %s", lower, p.maxWait)
		}
		select {
		case <-ctx.Done():
			return apierr.New(http.StatusInternalServerError, apierr.CodePublishFailed, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (p *publisher) writeMetadata(name string) error {
	meta := kernelMetadata{
		ID:             p.username + "/" + name,
		Title:          name,
		CodeFile:       name + ".ipynb",
		Language:       "python",
		KernelType:     "notebook",
		IsPrivate:      true,
		EnableGPU:      true,
		EnableInternet: false,
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.store.MetadataPath(name), raw, 0o644)
}

func outcomeForPollError(err error) string {
	if apierr.Is(err, apierr.CodePublishTimedOut) {
		return domain.RunOutcomeTimedOut
	}
	return domain.RunOutcomeFailed
}

func (p *publisher) record(ctx context.Context, name, outcome, diagnostic string) {
	if p.runs == nil {
		return
	}
	rec := &domain.RunRecord{
		NotebookName: name,
		Operation:    "publish",
		Outcome:      outcome,
		Diagnostic:   diagnostic,
	}
	if _, err := p.runs.Create(ctx, rec); err != nil {
		p.log.Warn("Could not record publish run", "notebook", name, "error", err)
	}
}
