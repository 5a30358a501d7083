package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/kernelpilot-backend/internal/platform/apierr"
	"github.com/yungbote/kernelpilot-backend/internal/platform/logger"
)

// fakeKaggle scripts the CLI boundary. Download materializes the given
// files; Metadata writes the (double-encoded) manifest file, the way the
// real tool does.
type fakeKaggle struct {
	listOutput   string
	listErr      error
	files        map[string]string // relative path -> content written on download
	metadataBody string
	downloads    []string
}

func (f *fakeKaggle) AssertReady(ctx context.Context) error { return nil }

func (f *fakeKaggle) DatasetsList(ctx context.Context, searchTerm, sortBy string) (string, error) {
	return f.listOutput, f.listErr
}

func (f *fakeKaggle) DatasetsDownload(ctx context.Context, datasetID, destDir string, unzip bool) error {
	f.downloads = append(f.downloads, datasetID)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	for rel, content := range f.files {
		if err := os.WriteFile(filepath.Join(destDir, rel), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeKaggle) DatasetsMetadata(ctx context.Context, datasetID, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destDir, "dataset-metadata.json"), []byte(f.metadataBody), 0o644)
}

func (f *fakeKaggle) KernelsPush(ctx context.Context, dir string) error { return nil }
func (f *fakeKaggle) KernelsStatus(ctx context.Context, kernelID string) (string, error) {
	return "", nil
}
func (f *fakeKaggle) KernelsOutput(ctx context.Context, kernelID, destDir string) error { return nil }

const sampleListing = "ref                          title        size  lastUpdated\n" +
	"---------------------------  -----------  ----  -----------\n" +
	"someuser/ufo-sightings       UFO reports  2MB   2024-01-01\n" +
	"otheruser/ufo-data           More UFOs    1MB   2024-02-02\n"

// The CLI stores the manifest JSON wrapped in a JSON-encoded string.
const doubleEncodedManifest = `"{\"title\": \"Demo\", \"subtitle\": \"sub\", \"description\": \"desc\"}"`

func newTestService(t *testing.T, cli *fakeKaggle) Service {
	t.Helper()
	return NewService(logger.NewNop(), cli, t.TempDir())
}

func TestSearchPicksTopRankedDataset(t *testing.T) {
	svc := newTestService(t, &fakeKaggle{listOutput: sampleListing})
	id, err := svc.Search(context.Background(), "ufo")
	require.NoError(t, err)
	require.Equal(t, "someuser/ufo-sightings", id)
}

func TestSearchHeaderOnlyListing(t *testing.T) {
	listing := "ref title size\n--- --- ---\n"
	svc := newTestService(t, &fakeKaggle{listOutput: listing})
	_, err := svc.Search(context.Background(), "nothing")
	require.True(t, apierr.Is(err, apierr.CodeNoResult), "got %v", err)
}

func TestSearchNoDatasetsFoundText(t *testing.T) {
	svc := newTestService(t, &fakeKaggle{listOutput: "No datasets found\n"})
	_, err := svc.Search(context.Background(), "gibberish")
	require.True(t, apierr.Is(err, apierr.CodeNoResult), "got %v", err)
}

func TestFetchManifestDoubleDecode(t *testing.T) {
	svc := newTestService(t, &fakeKaggle{metadataBody: doubleEncodedManifest})
	manifest, err := svc.FetchManifest(context.Background(), "someuser/demo")
	require.NoError(t, err)
	require.Equal(t, "Demo", manifest.Title)
	require.Equal(t, "sub", manifest.Subtitle)
	require.Equal(t, "desc", manifest.Description)
}

func TestFetchManifestSingleEncodedFails(t *testing.T) {
	// A plain JSON object is not the tool's format; the first decode must
	// yield a string.
	svc := newTestService(t, &fakeKaggle{metadataBody: `{"title": "Demo"}`})
	_, err := svc.FetchManifest(context.Background(), "someuser/demo")
	require.True(t, apierr.Is(err, apierr.CodeManifestUnreadable), "got %v", err)
}

func TestFetchManifestGarbageInner(t *testing.T) {
	svc := newTestService(t, &fakeKaggle{metadataBody: `"not json at all"`})
	_, err := svc.FetchManifest(context.Background(), "someuser/demo")
	require.True(t, apierr.Is(err, apierr.CodeManifestUnreadable), "got %v", err)
}

func TestEnumerateTables(t *testing.T) {
	svc := newTestService(t, &fakeKaggle{})
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("x\n1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("y\n2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("nope"), 0o644))

	tables, err := svc.EnumerateTables(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, tables)
}

func TestEnumerateTablesEmpty(t *testing.T) {
	svc := newTestService(t, &fakeKaggle{})
	_, err := svc.EnumerateTables(t.TempDir())
	require.True(t, apierr.Is(err, apierr.CodeNoTablesFound), "got %v", err)
}

func TestSummarizePreview(t *testing.T) {
	var rows []string
	for i := 0; i < 40; i++ {
		rows = append(rows, fmt.Sprintf("%d,city-%d", i, i))
	}
	csvBody := "sighting_id,city\n" + strings.Join(rows, "\n") + "\n"

	cli := &fakeKaggle{files: map[string]string{"sightings.csv": csvBody}}
	svc := newTestService(t, cli)
	_, err := svc.Download(context.Background(), "someuser/ufo")
	require.NoError(t, err)

	preview, err := svc.Summarize("someuser/ufo", "sightings")
	require.NoError(t, err)
	require.Equal(t, []string{"sighting_id", "city"}, preview.Headers)
	require.Len(t, preview.Rows, 25, "preview is capped at the first 25 data rows")
	require.Equal(t, "0,city-0", preview.Rows[0])
	require.NotContains(t, preview.Rows, "sighting_id,city", "header row must not repeat in the preview")
}

func TestSummarizeMissingTable(t *testing.T) {
	svc := newTestService(t, &fakeKaggle{})
	_, err := svc.Summarize("someuser/ufo", "ghost")
	require.True(t, apierr.Is(err, apierr.CodeTableNotFound), "got %v", err)
}

func TestAcquireEndToEnd(t *testing.T) {
	cli := &fakeKaggle{
		listOutput: sampleListing,
		files: map[string]string{
			"sightings.csv": "id,city\n1,Roswell\n2,Phoenix\n",
			"shapes.csv":    "shape,count\ndisc,40\n",
		},
		metadataBody: doubleEncodedManifest,
	}
	svc := newTestService(t, cli)

	record, err := svc.Acquire(context.Background(), "ufo")
	require.NoError(t, err)
	require.Equal(t, "someuser/ufo-sightings", record.DatasetName)
	require.Equal(t, "Demo", record.Title)
	require.Equal(t, "sub", record.Subtitle)
	require.Equal(t, "desc", record.Description)
	require.Equal(t, []string{"shapes", "sightings"}, record.Datasets)
	require.Equal(t, []string{"someuser/ufo-sightings"}, cli.downloads)

	require.Len(t, record.Previews, 2)
	require.Equal(t, []string{"id", "city"}, record.Previews["sightings"].Headers)
	require.Equal(t, []string{"1,Roswell", "2,Phoenix"}, record.Previews["sightings"].Rows)
}
