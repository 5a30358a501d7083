package notebook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"gorm.io/datatypes"

	"github.com/yungbote/kernelpilot-backend/internal/data/repos"
	"github.com/yungbote/kernelpilot-backend/internal/domain"
	"github.com/yungbote/kernelpilot-backend/internal/platform/apierr"
	"github.com/yungbote/kernelpilot-backend/internal/platform/keylock"
	"github.com/yungbote/kernelpilot-backend/internal/platform/logger"
	"github.com/yungbote/kernelpilot-backend/internal/platform/papermill"
)

// ExecutionResult is the terminal value of a validated notebook: the last
// output of the last executed code cell, either raw text or a parsed
// structure. Transient; not persisted beyond the response and the ledger.
type ExecutionResult struct {
	Value interface{} `json:"value"`
}

// Service orchestrates create/append/execute/recover as one coherent
// operation per request. All operations for one notebook name run under
// that name's lock; distinct names never block each other.
type Service interface {
	Create(ctx context.Context, name string, doc *domain.Document) error
	Append(ctx context.Context, name string, cells []domain.Cell) error
	Validate(ctx context.Context, name string) (*ExecutionResult, error)
	CreateAndValidate(ctx context.Context, name string, doc *domain.Document) (*ExecutionResult, error)
	AppendAndValidate(ctx context.Context, name string, cells []domain.Cell) (*ExecutionResult, error)
}

type service struct {
	log    *logger.Logger
	store  Store
	engine papermill.Engine
	locks  *keylock.KeyLock
	runs   repos.RunRecordRepo
}

func NewService(baseLog *logger.Logger, store Store, engine papermill.Engine, locks *keylock.KeyLock, runs repos.RunRecordRepo) Service {
	return &service{
		log:    baseLog.With("service", "NotebookService"),
		store:  store,
		engine: engine,
		locks:  locks,
		runs:   runs,
	}
}

func (s *service) Create(ctx context.Context, name string, doc *domain.Document) error {
	s.locks.Lock(name)
	defer s.locks.Unlock(name)
	return s.create(name, doc)
}

func (s *service) Append(ctx context.Context, name string, cells []domain.Cell) error {
	s.locks.Lock(name)
	defer s.locks.Unlock(name)
	return s.append(name, cells)
}

func (s *service) Validate(ctx context.Context, name string) (*ExecutionResult, error) {
	s.locks.Lock(name)
	defer s.locks.Unlock(name)
	return s.validate(ctx, name, "validate")
}

func (s *service) CreateAndValidate(ctx context.Context, name string, doc *domain.Document) (*ExecutionResult, error) {
	s.locks.Lock(name)
	defer s.locks.Unlock(name)
	if err := s.create(name, doc); err != nil {
		return nil, err
	}
	return s.validate(ctx, name, "create")
}

func (s *service) AppendAndValidate(ctx context.Context, name string, cells []domain.Cell) (*ExecutionResult, error) {
	s.locks.Lock(name)
	defer s.locks.Unlock(name)
	if err := s.append(name, cells); err != nil {
		return nil, err
	}
	return s.validate(ctx, name, "append")
}

// create persists the given content verbatim as the new document. Creation
// is not idempotent and never silently upgrades to append.
func (s *service) create(name string, doc *domain.Document) error {
	if s.store.Exists(name) {
		return apierr.Newf(http.StatusConflict, apierr.CodeAlreadyExists,
			"notebook %s already exists", name)
	}
	if err := s.store.Save(name, doc); err != nil {
		return err
	}
	s.log.Info("Created new notebook", "notebook", name)
	return nil
}

// append backs up the live document, then appends each cell in order,
// persisting after each one. A save failure mid-append rolls the store
// back to the backup, so a failed request never leaves a half-mutated
// document or a dangling backup behind.
func (s *service) append(name string, cells []domain.Cell) error {
	doc, ok := s.store.Load(name)
	if !ok {
		return apierr.Newf(http.StatusNotFound, apierr.CodeNotFound,
			"notebook %s not found", name)
	}
	if err := s.store.Backup(name); err != nil {
		return err
	}
	for _, cell := range cells {
		doc.Append(cell)
		if err := s.store.Save(name, doc); err != nil {
			if _, rerr := s.store.RestoreBackup(name); rerr != nil {
				s.log.Error("Rollback after failed append also failed", "notebook", name, "error", rerr)
			}
			return err
		}
	}
	s.log.Info("Appended cells to notebook", "notebook", name, "cells", len(cells))
	return nil
}

// validate runs the document through the execution engine. Engine failure
// rolls the store back to the pre-mutation state (restore backup, or
// delete the document when none exists) before the error propagates.
func (s *service) validate(ctx context.Context, name, operation string) (*ExecutionResult, error) {
	if !s.store.Exists(name) {
		return nil, apierr.Newf(http.StatusNotFound, apierr.CodeNotFound,
			"notebook %s not found", name)
	}

	err := s.engine.Execute(ctx, s.store.DocumentPath(name), s.store.OutputPath(name))
	if err != nil {
		if _, rerr := s.store.RestoreBackup(name); rerr != nil {
			s.log.Error("Rollback after failed execution also failed", "notebook", name, "error", rerr)
		}
		diagnostic := err.Error()
		var execErr *papermill.ExecutionError
		if errors.As(err, &execErr) {
			diagnostic = execErr.Diagnostic
		}
		s.record(ctx, name, operation, domain.RunOutcomeRolledBack, diagnostic, nil)
		return nil, apierr.New(http.StatusInternalServerError, apierr.CodeValidationFailed, err)
	}

	if err := s.store.DeleteBackup(name); err != nil {
		s.log.Warn("Could not remove backup after successful execution", "notebook", name, "error", err)
	}

	result, err := s.extractFromOutput(name)
	if err != nil {
		s.record(ctx, name, operation, domain.RunOutcomeFailed, err.Error(), nil)
		return nil, err
	}
	s.record(ctx, name, operation, domain.RunOutcomeValidated, "", result)
	return result, nil
}

func (s *service) extractFromOutput(name string) (*ExecutionResult, error) {
	raw, err := os.ReadFile(s.store.OutputPath(name))
	if err != nil {
		return nil, apierr.Newf(http.StatusInternalServerError, apierr.CodeEmptyResult,
			"executed notebook is unreadable: %v", err)
	}
	var doc executedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apierr.Newf(http.StatusInternalServerError, apierr.CodeEmptyResult,
			"executed notebook is unparseable: %v", err)
	}
	value, ok := extractTerminalResult(&doc)
	if !ok {
		return nil, apierr.Newf(http.StatusInternalServerError, apierr.CodeEmptyResult,
			"executed notebook %s has no output", name)
	}
	return &ExecutionResult{Value: value}, nil
}

// record writes a ledger row. Ledger failures are logged, never surfaced.
func (s *service) record(ctx context.Context, name, operation, outcome, diagnostic string, result *ExecutionResult) {
	if s.runs == nil {
		return
	}
	rec := &domain.RunRecord{
		NotebookName: name,
		Operation:    operation,
		Outcome:      outcome,
		Diagnostic:   diagnostic,
	}
	if result != nil {
		if raw, err := json.Marshal(result); err == nil {
			rec.Result = datatypes.JSON(raw)
		}
	}
	if _, err := s.runs.Create(ctx, rec); err != nil {
		s.log.Warn("Could not record run", "notebook", name, "operation", operation, "error", err)
	}
}
