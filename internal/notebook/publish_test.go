package notebook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/kernelpilot-backend/internal/platform/apierr"
	"github.com/yungbote/kernelpilot-backend/internal/platform/keylock"
	"github.com/yungbote/kernelpilot-backend/internal/platform/logger"
)

// fakeKaggle scripts the CLI boundary: KernelsStatus pops one status per
// call, sticking on the last.
type fakeKaggle struct {
	statuses    []string
	statusCalls int
	pushErr     error
	pushedDirs  []string
	outputDirs  []string
}

func (f *fakeKaggle) AssertReady(ctx context.Context) error { return nil }

func (f *fakeKaggle) DatasetsList(ctx context.Context, searchTerm, sortBy string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeKaggle) DatasetsDownload(ctx context.Context, datasetID, destDir string, unzip bool) error {
	return errors.New("not used")
}

func (f *fakeKaggle) DatasetsMetadata(ctx context.Context, datasetID, destDir string) error {
	return errors.New("not used")
}

func (f *fakeKaggle) KernelsPush(ctx context.Context, dir string) error {
	f.pushedDirs = append(f.pushedDirs, dir)
	return f.pushErr
}

func (f *fakeKaggle) KernelsStatus(ctx context.Context, kernelID string) (string, error) {
	idx := f.statusCalls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.statusCalls++
	return f.statuses[idx], nil
}

func (f *fakeKaggle) KernelsOutput(ctx context.Context, kernelID, destDir string) error {
	f.outputDirs = append(f.outputDirs, destDir)
	return os.MkdirAll(destDir, 0o755)
}

func newTestPublisher(t *testing.T, cli *fakeKaggle, maxWait time.Duration) (Publisher, Store) {
	t.Helper()
	store := NewStore(logger.NewNop(), t.TempDir())
	pub := NewPublisher(logger.NewNop(), store, cli, keylock.New(), nil,
		"testuser", time.Millisecond, maxWait)
	return pub, store
}

func seedNotebook(t *testing.T, store Store, name string) {
	t.Helper()
	require.NoError(t, store.Save(name, docFromJSON(t, `{"cells":[]}`)))
}

func TestPublishWritesManifestAndPushes(t *testing.T) {
	cli := &fakeKaggle{statuses: []string{"running", "running", "complete"}}
	pub, store := newTestPublisher(t, cli, time.Minute)
	seedNotebook(t, store, "mynb")

	require.NoError(t, pub.Publish(context.Background(), "mynb"))

	raw, err := os.ReadFile(store.MetadataPath("mynb"))
	require.NoError(t, err)
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &meta))
	require.Equal(t, "testuser/mynb", meta["id"])
	require.Equal(t, "mynb", meta["title"])
	require.Equal(t, "mynb.ipynb", meta["code_file"])
	require.Equal(t, "python", meta["language"])
	require.Equal(t, "notebook", meta["kernel_type"])
	require.Equal(t, true, meta["is_private"])
	require.Equal(t, true, meta["enable_gpu"])
	require.Equal(t, false, meta["enable_internet"])

	require.Equal(t, []string{store.Dir("mynb")}, cli.pushedDirs)
	require.Len(t, cli.outputDirs, 1)
	require.GreaterOrEqual(t, cli.statusCalls, 3)
}

func TestPublishRemoteFailure(t *testing.T) {
	cli := &fakeKaggle{statuses: []string{"running", "error: exception in cell 2"}}
	pub, store := newTestPublisher(t, cli, time.Minute)
	seedNotebook(t, store, "mynb")

	err := pub.Publish(context.Background(), "mynb")
	require.True(t, apierr.Is(err, apierr.CodePublishFailed), "got %v", err)
	require.Empty(t, cli.outputDirs, "outputs must not be fetched after a remote failure")

	// Publish never mutates the local store.
	require.True(t, store.Exists("mynb"))
}

func TestPublishTimesOut(t *testing.T) {
	cli := &fakeKaggle{statuses: []string{"queued"}}
	pub, store := newTestPublisher(t, cli, 5*time.Millisecond)
	seedNotebook(t, store, "mynb")

	err := pub.Publish(context.Background(), "mynb")
	require.True(t, apierr.Is(err, apierr.CodePublishTimedOut), "got %v", err)
}

func TestPublishCancellable(t *testing.T) {
	cli := &fakeKaggle{statuses: []string{"queued"}}
	pub, store := newTestPublisher(t, cli, time.Hour)
	seedNotebook(t, store, "mynb")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pub.Publish(ctx, "mynb")
	require.True(t, apierr.Is(err, apierr.CodePublishFailed), "got %v", err)
}

func TestPublishMissingNotebook(t *testing.T) {
	pub, _ := newTestPublisher(t, &fakeKaggle{statuses: []string{"complete"}}, time.Minute)
	err := pub.Publish(context.Background(), "ghost")
	require.True(t, apierr.Is(err, apierr.CodeNotFound), "got %v", err)
}

func TestPublishPushFailure(t *testing.T) {
	cli := &fakeKaggle{
		statuses: []string{"complete"},
		pushErr:  apierr.Newf(http.StatusInternalServerError, apierr.CodeExternalToolFailed, "kaggle push: exit status 1"),
	}
	pub, store := newTestPublisher(t, cli, time.Minute)
	seedNotebook(t, store, "mynb")

	err := pub.Publish(context.Background(), "mynb")
	require.True(t, apierr.Is(err, apierr.CodePublishFailed), "got %v", err)
	require.Equal(t, 0, cli.statusCalls, "polling must not start after a failed push")
}
