package dataset

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/kernelpilot-backend/internal/domain"
	"github.com/yungbote/kernelpilot-backend/internal/platform/apierr"
	"github.com/yungbote/kernelpilot-backend/internal/platform/kagglecli"
	"github.com/yungbote/kernelpilot-backend/internal/platform/logger"
)

const previewRowLimit = 25

// Service is the one-shot search-download-summarize pipeline. It has no
// mutable state to corrupt; a failed run leaves at most a partial download
// directory and the caller retries the whole request.
type Service interface {
	Acquire(ctx context.Context, searchTerm string) (*domain.DatasetRecord, error)

	Search(ctx context.Context, searchTerm string) (string, error)
	Download(ctx context.Context, datasetID string) (string, error)
	EnumerateTables(dir string) ([]string, error)
	FetchManifest(ctx context.Context, datasetID string) (*domain.Manifest, error)
	Summarize(datasetID, tableID string) (*domain.TablePreview, error)
}

type service struct {
	log  *logger.Logger
	cli  kagglecli.Client
	root string
}

func NewService(baseLog *logger.Logger, cli kagglecli.Client, root string) Service {
	if root == "" {
		root = "datasets"
	}
	return &service{
		log:  baseLog.With("service", "DatasetService"),
		cli:  cli,
		root: root,
	}
}

func (s *service) datasetDir(datasetID string) string {
	return filepath.Join(s.root, filepath.FromSlash(datasetID))
}

func (s *service) Acquire(ctx context.Context, searchTerm string) (*domain.DatasetRecord, error) {
	datasetID, err := s.Search(ctx, searchTerm)
	if err != nil {
		return nil, err
	}
	dir, err := s.Download(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	tables, err := s.EnumerateTables(dir)
	if err != nil {
		return nil, err
	}
	manifest, err := s.FetchManifest(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	previews := make(map[string]domain.TablePreview, len(tables))
	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, table := range tables {
		g.Go(func() error {
			preview, err := s.Summarize(datasetID, table)
			if err != nil {
				return err
			}
			mu.Lock()
			previews[table] = *preview
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	record := &domain.DatasetRecord{
		DatasetName: datasetID,
		Title:       manifest.Title,
		Subtitle:    manifest.Subtitle,
		Description: manifest.Description,
		Datasets:    tables,
		Previews:    previews,
	}
	s.log.Info("Dataset acquired", "dataset", datasetID, "tables", len(tables))
	return record, nil
}

// Search returns the top-ranked dataset identifier for the term. The CLI
// listing is tabular text: two header lines, then one dataset per row with
// the identifier as the first whitespace-delimited token.
func (s *service) Search(ctx context.Context, searchTerm string) (string, error) {
	out, err := s.cli.DatasetsList(ctx, searchTerm, "hottest")
	if err != nil {
		return "", err
	}
	if strings.Contains(strings.ToLower(out), "no datasets found") {
		return "", apierr.Newf(http.StatusInternalServerError, apierr.CodeNoResult,
			"no datasets found for %q", searchTerm)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) <= 2 {
		return "", apierr.Newf(http.StatusInternalServerError, apierr.CodeNoResult,
			"no datasets found for %q", searchTerm)
	}
	fields := strings.Fields(lines[2])
	if len(fields) == 0 {
		return "", apierr.Newf(http.StatusInternalServerError, apierr.CodeNoResult,
			"no datasets found for %q", searchTerm)
	}
	datasetID := fields[0]
	s.log.Info("Top-ranked dataset", "term", searchTerm, "dataset", datasetID)
	return datasetID, nil
}

// Download fetches and extracts the dataset into its per-dataset directory.
func (s *service) Download(ctx context.Context, datasetID string) (string, error) {
	dir := s.datasetDir(datasetID)
	if err := s.cli.DatasetsDownload(ctx, datasetID, dir, true); err != nil {
		return "", err
	}
	s.log.Info("Dataset downloaded", "dataset", datasetID, "dir", dir)
	return dir, nil
}

// EnumerateTables lists the table file ids (CSV stems) in the directory.
func (s *service) EnumerateTables(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("scan dataset dir: %w", err)
	}
	if len(paths) == 0 {
		return nil, apierr.Newf(http.StatusInternalServerError, apierr.CodeNoTablesFound,
			"no table files found in %s", dir)
	}
	tables := make([]string, 0, len(paths))
	for _, p := range paths {
		tables = append(tables, strings.TrimSuffix(filepath.Base(p), ".csv"))
	}
	sort.Strings(tables)
	return tables, nil
}

// FetchManifest downloads the dataset metadata file and decodes it as JSON
// twice. The external tool stores the JSON document wrapped in a
// JSON-encoded string; this two-pass decode is that tool's documented
// quirk, not a bug here. If the tool ever changes its output format, this
// is the only place to touch.
func (s *service) FetchManifest(ctx context.Context, datasetID string) (*domain.Manifest, error) {
	dir := s.datasetDir(datasetID)
	if err := s.cli.DatasetsMetadata(ctx, datasetID, dir); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(dir, "dataset-metadata.json"))
	if err != nil {
		return nil, apierr.Newf(http.StatusInternalServerError, apierr.CodeManifestUnreadable,
			"read dataset metadata: %v", err)
	}

	var wrapped string
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, apierr.Newf(http.StatusInternalServerError, apierr.CodeManifestUnreadable,
			"dataset metadata is not a JSON-encoded string: %v", err)
	}
	var manifest domain.Manifest
	if err := json.Unmarshal([]byte(wrapped), &manifest); err != nil {
		return nil, apierr.Newf(http.StatusInternalServerError, apierr.CodeManifestUnreadable,
			"dataset metadata inner document is unparseable: %v", err)
	}
	return &manifest, nil
}

// Summarize reads one table file and returns its column headers plus the
// first data rows rendered as delimited text, without the header row.
func (s *service) Summarize(datasetID, tableID string) (*domain.TablePreview, error) {
	path := filepath.Join(s.datasetDir(datasetID), tableID+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, apierr.Newf(http.StatusInternalServerError, apierr.CodeTableNotFound,
			"table %s not found in dataset %s", tableID, datasetID)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, apierr.Newf(http.StatusInternalServerError, apierr.CodeTableNotFound,
			"table %s is empty or unreadable: %v", tableID, err)
	}

	rows := make([]string, 0, previewRowLimit)
	for len(rows) < previewRowLimit {
		record, err := reader.Read()
		if err != nil {
			break
		}
		rows = append(rows, strings.Join(record, ","))
	}
	return &domain.TablePreview{Headers: header, Rows: rows}, nil
}
