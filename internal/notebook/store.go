package notebook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yungbote/kernelpilot-backend/internal/domain"
	"github.com/yungbote/kernelpilot-backend/internal/platform/logger"
)

// Store is the durable local home of exactly one document per notebook
// name, plus its short-lived backup. Layout per name:
//
//	{root}/kaggle_notebook_{name}/{name}.ipynb          live document
//	{root}/kaggle_notebook_{name}/{name}-backup.ipynb   only mid-operation
//	{root}/kaggle_notebook_{name}/{name}-output.ipynb   last executed copy
//	{root}/kaggle_notebook_{name}/kernel-metadata.json  publish manifest
type Store interface {
	Dir(name string) string
	DocumentPath(name string) string
	OutputPath(name string) string
	MetadataPath(name string) string

	// Load returns the stored document, or ok=false when no file exists or
	// it cannot be parsed. Absence is an expected state, not a fault.
	Load(name string) (*domain.Document, bool)
	// Save overwrites the live document. Writes go to a temp file first and
	// rename into place, so a crash mid-write cannot corrupt the store.
	Save(name string, doc *domain.Document) error
	Exists(name string) bool
	Delete(name string) error

	// Backup copies the live document into the backup slot, replacing any
	// prior backup. The live document must exist.
	Backup(name string) error
	// RestoreBackup copies the backup over the live document and deletes
	// the backup. With no backup present it deletes the live document
	// instead and reports restored=false: no backup means the attempt is
	// discarded entirely.
	RestoreBackup(name string) (restored bool, err error)
	// DeleteBackup removes the backup slot. Idempotent.
	DeleteBackup(name string) error
	BackupExists(name string) bool
}

type fsStore struct {
	log  *logger.Logger
	root string
}

func NewStore(baseLog *logger.Logger, root string) Store {
	if root == "" {
		root = "."
	}
	return &fsStore{
		log:  baseLog.With("service", "NotebookStore"),
		root: root,
	}
}

func (s *fsStore) Dir(name string) string {
	return filepath.Join(s.root, "kaggle_notebook_"+name)
}

func (s *fsStore) DocumentPath(name string) string {
	return filepath.Join(s.Dir(name), name+".ipynb")
}

func (s *fsStore) backupPath(name string) string {
	return filepath.Join(s.Dir(name), name+"-backup.ipynb")
}

func (s *fsStore) OutputPath(name string) string {
	return filepath.Join(s.Dir(name), name+"-output.ipynb")
}

func (s *fsStore) MetadataPath(name string) string {
	return filepath.Join(s.Dir(name), "kernel-metadata.json")
}

func (s *fsStore) Load(name string) (*domain.Document, bool) {
	raw, err := os.ReadFile(s.DocumentPath(name))
	if err != nil {
		return nil, false
	}
	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.Warn("Stored notebook is unparseable, treating as absent", "notebook", name, "error", err)
		return nil, false
	}
	return &doc, true
}

func (s *fsStore) Save(name string, doc *domain.Document) error {
	dir := s.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir notebook dir: %w", err)
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal notebook: %w", err)
	}
	tmp, err := os.CreateTemp(dir, name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp notebook file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write notebook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close notebook temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.DocumentPath(name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename notebook into place: %w", err)
	}
	return nil
}

func (s *fsStore) Exists(name string) bool {
	_, err := os.Stat(s.DocumentPath(name))
	return err == nil
}

func (s *fsStore) Delete(name string) error {
	err := os.Remove(s.DocumentPath(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *fsStore) Backup(name string) error {
	raw, err := os.ReadFile(s.DocumentPath(name))
	if err != nil {
		return fmt.Errorf("read notebook for backup: %w", err)
	}
	if err := os.WriteFile(s.backupPath(name), raw, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	s.log.Debug("Backup created", "notebook", name, "path", s.backupPath(name))
	return nil
}

func (s *fsStore) RestoreBackup(name string) (bool, error) {
	raw, err := os.ReadFile(s.backupPath(name))
	if os.IsNotExist(err) {
		s.log.Warn("No backup to restore, deleting notebook", "notebook", name)
		if err := s.Delete(name); err != nil {
			return false, err
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read backup: %w", err)
	}
	if err := os.WriteFile(s.DocumentPath(name), raw, 0o644); err != nil {
		return false, fmt.Errorf("restore backup over notebook: %w", err)
	}
	if err := s.DeleteBackup(name); err != nil {
		return false, err
	}
	s.log.Info("Notebook reverted to backup", "notebook", name)
	return true, nil
}

func (s *fsStore) DeleteBackup(name string) error {
	err := os.Remove(s.backupPath(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *fsStore) BackupExists(name string) bool {
	_, err := os.Stat(s.backupPath(name))
	return err == nil
}
