package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "wallheaven-sync/pkg/errors"
	"wallheaven-sync/pkg/logger"
	"wallheaven-sync/pkg/storage"
	"wallheaven-sync/pkg/ui"
	"wallheaven-sync/pkg/wallhaven"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeCatalog struct {
	items   []wallhaven.RemoteItem
	details map[string]*wallhaven.ItemDetail
	listErr error
	lookups []string
}

func (f *fakeCatalog) ListItems(ctx context.Context, username string, collectionID int) ([]wallhaven.RemoteItem, error) {
	return f.items, f.listErr
}

func (f *fakeCatalog) FetchDetail(ctx context.Context, id string) (*wallhaven.ItemDetail, error) {
	f.lookups = append(f.lookups, id)
	detail, ok := f.details[id]
	if !ok {
		return nil, errs.New(errs.ErrorTypeProtocol, "unhandled error response: Nothing here")
	}
	return detail, nil
}

type fakeDownloader struct {
	assets map[string][]byte
	errs   map[string]error
	calls  []string
}

func (f *fakeDownloader) DownloadAsset(ctx context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	data, ok := f.assets[url]
	if !ok {
		return nil, &errs.Error{Type: errs.ErrorTypeDownload, Message: "unexpected status 404 for " + url, Code: 404}
	}
	return data, nil
}

type countingStore struct {
	*storage.Store
	saves  int
	writes int
}

func (c *countingStore) SaveIndex(label string, index storage.Index) error {
	c.saves++
	return c.Store.SaveIndex(label, index)
}

func (c *countingStore) WriteAsset(label, filename string, data []byte) error {
	c.writes++
	return c.Store.WriteAsset(label, filename, data)
}

func sequentialNames() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("file%d", n)
	}
}

func assetURL(id string) string {
	return "https://w.wallhaven.cc/full/" + id[:2] + "/wallhaven-" + id + ".png"
}

// newFixture serves the given ids as one collection with a png asset each
func newFixture(t *testing.T, ids ...string) (*fakeCatalog, *fakeDownloader, *countingStore) {
	t.Helper()
	catalog := &fakeCatalog{details: map[string]*wallhaven.ItemDetail{}}
	downloader := &fakeDownloader{assets: map[string][]byte{}, errs: map[string]error{}}
	for _, id := range ids {
		catalog.items = append(catalog.items, wallhaven.RemoteItem{ID: id, URL: "https://wallhaven.cc/w/" + id, Path: assetURL(id)})
		catalog.details[id] = &wallhaven.ItemDetail{ID: id, URL: "https://wallhaven.cc/w/" + id, Path: assetURL(id), Tags: []string{"tag-" + id}}
		downloader.assets[assetURL(id)] = append([]byte(id+":"), pngHeader...)
	}

	store := storage.New(filepath.Join(t.TempDir(), "storage"))
	require.NoError(t, store.Init())
	return catalog, downloader, &countingStore{Store: store}
}

var favorites = wallhaven.CollectionSummary{ID: 15, Label: "Favorites", Count: 2}

func TestSyncDownloadsNewItems(t *testing.T) {
	catalog, downloader, store := newFixture(t, "aa11", "bb22")
	notifier := &ui.RecordingNotifier{}
	engine := NewEngine(catalog, downloader, store, WithNotifier(notifier), WithNameGenerator(sequentialNames()))

	result, err := engine.Sync(context.Background(), "TSear", favorites)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Remote)
	assert.Equal(t, 2, result.Planned)
	assert.Equal(t, 2, result.Downloaded)
	assert.Zero(t, result.Failed)
	assert.Equal(t, []string{"[1/2] wallhaven.cc/w/aa11...", "[2/2] wallhaven.cc/w/bb22..."}, notifier.Snapshot())

	index, ok, err := store.LoadIndex("Favorites")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, storage.Index{
		{Filename: "file1.png", Tags: []string{"tag-aa11"}, SourceURL: "https://wallhaven.cc/w/aa11", AssetPath: assetURL("aa11")},
		{Filename: "file2.png", Tags: []string{"tag-bb22"}, SourceURL: "https://wallhaven.cc/w/bb22", AssetPath: assetURL("bb22")},
	}, index)

	files, err := store.ListAssetFilenames("Favorites")
	require.NoError(t, err)
	assert.Equal(t, []string{"file1.png", "file2.png"}, files)
	assert.Equal(t, 2, store.saves)
}

func TestSyncSingleFlush(t *testing.T) {
	catalog, downloader, store := newFixture(t, "aa11", "bb22", "cc33")
	engine := NewEngine(catalog, downloader, store, WithFlushEachItem(false))

	result, err := engine.Sync(context.Background(), "TSear", favorites)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Downloaded)
	assert.Equal(t, 1, store.saves)

	index, _, err := store.LoadIndex("Favorites")
	require.NoError(t, err)
	assert.Len(t, index, 3)
}

func TestSyncIsIdempotent(t *testing.T) {
	catalog, downloader, store := newFixture(t, "aa11", "bb22")
	engine := NewEngine(catalog, downloader, store)

	_, err := engine.Sync(context.Background(), "TSear", favorites)
	require.NoError(t, err)
	store.saves, store.writes = 0, 0
	downloader.calls = nil

	notifier := &ui.RecordingNotifier{}
	engine = NewEngine(catalog, downloader, store, WithNotifier(notifier))
	result, err := engine.Sync(context.Background(), "TSear", favorites)
	require.NoError(t, err)

	assert.True(t, result.UpToDate())
	assert.Equal(t, []string{"Collection Favorites is up to date"}, notifier.Snapshot())
	assert.Zero(t, store.saves)
	assert.Zero(t, store.writes)
	assert.Empty(t, downloader.calls)
}

func TestSyncSkipsRepeatedRemoteItems(t *testing.T) {
	catalog, downloader, store := newFixture(t, "aa11", "bb22")
	catalog.items = append(catalog.items, catalog.items[0])

	engine := NewEngine(catalog, downloader, store)
	result, err := engine.Sync(context.Background(), "TSear", favorites)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Planned)
	assert.Equal(t, 2, result.Downloaded)
	assert.Len(t, downloader.calls, 2)

	index, _, err := store.LoadIndex("Favorites")
	require.NoError(t, err)
	require.Len(t, index, 2)
	assert.Len(t, index.SourceURLs(), 2)
}

func TestSyncKeepsExistingRecordsFirst(t *testing.T) {
	catalog, downloader, store := newFixture(t, "aa11", "bb22")
	existing := storage.Index{{Filename: "old.jpg", Tags: []string{}, SourceURL: "https://wallhaven.cc/w/old"}}
	require.NoError(t, store.Store.SaveIndex("Favorites", existing))

	engine := NewEngine(catalog, downloader, store, WithFlushEachItem(false), WithNameGenerator(sequentialNames()))
	_, err := engine.Sync(context.Background(), "TSear", favorites)
	require.NoError(t, err)

	index, _, err := store.LoadIndex("Favorites")
	require.NoError(t, err)
	require.Len(t, index, 3)
	assert.Equal(t, "old.jpg", index[0].Filename)
	assert.Equal(t, "file1.png", index[1].Filename)
	assert.Equal(t, "file2.png", index[2].Filename)
}

func TestSyncSkipsFailedItems(t *testing.T) {
	catalog, downloader, store := newFixture(t, "aa11", "bb22", "cc33")
	delete(downloader.assets, assetURL("bb22"))
	delete(catalog.details, "cc33")
	notifier := &ui.RecordingNotifier{}
	log := logger.NewTestLogger()

	engine := NewEngine(catalog, downloader, store, WithNotifier(notifier), WithLogger(log))
	result, err := engine.Sync(context.Background(), "TSear", favorites)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Downloaded)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, "bb22", result.Failures[0].ID)
	assert.True(t, errs.Is(result.Failures[0].Err, errs.ErrorTypeDownload))
	assert.Equal(t, "cc33", result.Failures[1].ID)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 2)
	assert.Contains(t, notifier.Snapshot(), "[2/3] wallhaven.cc/w/bb22...")

	index, _, err := store.LoadIndex("Favorites")
	require.NoError(t, err)
	require.Len(t, index, 1)
	assert.Equal(t, "https://wallhaven.cc/w/aa11", index[0].SourceURL)
}

func TestSyncAbortsOnFatalError(t *testing.T) {
	tests := []struct {
		name        string
		flushEach   bool
		wantRecords int
	}{
		{"flush each item keeps completed work", true, 1},
		{"single flush loses the run", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, downloader, store := newFixture(t, "aa11", "bb22", "cc33")
			downloader.errs[assetURL("bb22")] = errs.Wrap(errs.ErrorTypeTransport, errors.New("connection reset"), "request failed")

			engine := NewEngine(catalog, downloader, store, WithFlushEachItem(tt.flushEach))
			result, err := engine.Sync(context.Background(), "TSear", favorites)
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.ErrorTypeTransport))
			assert.Equal(t, 1, result.Downloaded)
			assert.NotContains(t, downloader.calls, assetURL("cc33"))

			index, _, err := store.LoadIndex("Favorites")
			require.NoError(t, err)
			assert.Len(t, index, tt.wantRecords)

			files, err := store.ListAssetFilenames("Favorites")
			require.NoError(t, err)
			assert.Len(t, files, 1)
		})
	}
}

func TestSyncListFailure(t *testing.T) {
	catalog, downloader, store := newFixture(t)
	catalog.listErr = errs.New(errs.ErrorTypeProtocol, "unhandled error response: Unauthorized")

	engine := NewEngine(catalog, downloader, store)
	_, err := engine.Sync(context.Background(), "TSear", favorites)
	assert.True(t, errs.Is(err, errs.ErrorTypeProtocol))
	assert.False(t, store.CollectionExists("Favorites"))
}

func TestSyncFallbackExtension(t *testing.T) {
	catalog, downloader, store := newFixture(t, "aa11")
	catalog.details["aa11"].Path = "https://w.wallhaven.cc/full/aa/noext"
	downloader.assets["https://w.wallhaven.cc/full/aa/noext"] = pngHeader

	engine := NewEngine(catalog, downloader, store, WithNameGenerator(sequentialNames()), WithFallbackExtension(".JPG"))
	_, err := engine.Sync(context.Background(), "TSear", favorites)
	require.NoError(t, err)

	index, _, _ := store.LoadIndex("Favorites")
	require.Len(t, index, 1)
	assert.Equal(t, "file1.jpg", index[0].Filename)
}

func writeCollection(t *testing.T, store *countingStore, files []string, index storage.Index) {
	t.Helper()
	for _, name := range files {
		require.NoError(t, store.Store.WriteAsset("Favorites", name, []byte(name)))
	}
	require.NoError(t, store.Store.SaveIndex("Favorites", index))
}

func TestPrune(t *testing.T) {
	_, _, store := newFixture(t)
	index := storage.Index{
		{Filename: "a.png", Tags: []string{}, SourceURL: "https://wallhaven.cc/w/a"},
		{Filename: "c.png", Tags: []string{}, SourceURL: "https://wallhaven.cc/w/c"},
	}
	writeCollection(t, store, []string{"a.png", "b.png", "c.png"}, index)

	engine := NewEngine(nil, nil, store)
	result, err := engine.Prune(context.Background(), "Favorites")
	require.NoError(t, err)

	assert.Equal(t, []string{"b.png"}, result.Deleted)
	assert.Empty(t, result.Dropped)
	assert.Equal(t, 2, result.Kept)

	files, err := store.ListAssetFilenames("Favorites")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "c.png"}, files)

	loaded, _, err := store.LoadIndex("Favorites")
	require.NoError(t, err)
	assert.Equal(t, index, loaded)
}

func TestPruneDropsRecordsWithoutFiles(t *testing.T) {
	_, _, store := newFixture(t)
	writeCollection(t, store, []string{"c.png", "a.png"}, storage.Index{
		{Filename: "c.png", Tags: []string{}, SourceURL: "https://wallhaven.cc/w/c"},
		{Filename: "gone.png", Tags: []string{}, SourceURL: "https://wallhaven.cc/w/gone"},
		{Filename: "a.png", Tags: []string{}, SourceURL: "https://wallhaven.cc/w/a"},
	})

	engine := NewEngine(nil, nil, store)
	result, err := engine.Prune(context.Background(), "Favorites")
	require.NoError(t, err)
	require.Len(t, result.Dropped, 1)
	assert.Equal(t, "gone.png", result.Dropped[0].Filename)

	loaded, _, err := store.LoadIndex("Favorites")
	require.NoError(t, err)
	assert.Equal(t, []string{"c.png", "a.png"}, []string{loaded[0].Filename, loaded[1].Filename})
}

func TestPruneMissingCollection(t *testing.T) {
	_, _, store := newFixture(t)
	engine := NewEngine(nil, nil, store)

	_, err := engine.Prune(context.Background(), "Nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrCollectionNotFound))
	assert.True(t, errs.Is(err, errs.ErrorTypeStorage))
}

func TestRebuild(t *testing.T) {
	catalog, downloader, store := newFixture(t)
	downloader.assets["https://w.wallhaven.cc/full/aa/a.png"] = []byte("a-bytes")
	downloader.assets["https://w.wallhaven.cc/full/bb/b-new.png"] = []byte("b-bytes")
	catalog.details["bbbb"] = &wallhaven.ItemDetail{ID: "bbbb", Path: "https://w.wallhaven.cc/full/bb/b-new.png"}

	writeCollection(t, store, []string{"kept.png"}, storage.Index{
		{Filename: "kept.png", Tags: []string{}, SourceURL: "https://wallhaven.cc/w/kkkk", AssetPath: "https://w.wallhaven.cc/full/kk/k.png"},
		{Filename: "a.png", Tags: []string{}, SourceURL: "https://wallhaven.cc/w/aaaa", AssetPath: "https://w.wallhaven.cc/full/aa/a.png"},
		{Filename: "b.png", Tags: []string{}, SourceURL: "https://wallhaven.cc/w/bbbb", AssetPath: "https://w.wallhaven.cc/full/bb/b-old.png"},
		{Filename: "c.png", Tags: []string{}, SourceURL: "/home/user/c.png", AssetPath: "https://example.com/c.png"},
	})

	engine := NewEngine(catalog, downloader, store)
	result, err := engine.Rebuild(context.Background(), "Favorites")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Missing)
	assert.Equal(t, 2, result.Restored)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "c.png", result.Failures[0].ID)
	assert.Equal(t, []string{"bbbb"}, catalog.lookups)
	assert.NotContains(t, downloader.calls, "https://w.wallhaven.cc/full/kk/k.png")

	path, err := store.AssetPath("Favorites", "b.png")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b-bytes", string(data))

	index, _, err := store.LoadIndex("Favorites")
	require.NoError(t, err)
	assert.Equal(t, "https://w.wallhaven.cc/full/bb/b-new.png", index[2].AssetPath)
}

func TestRebuildNothingMissing(t *testing.T) {
	catalog, downloader, store := newFixture(t)
	writeCollection(t, store, []string{"a.png"}, storage.Index{{Filename: "a.png", Tags: []string{}, SourceURL: "x"}})
	store.saves, store.writes = 0, 0

	engine := NewEngine(catalog, downloader, store)
	result, err := engine.Rebuild(context.Background(), "Favorites")
	require.NoError(t, err)
	assert.Zero(t, result.Missing)
	assert.Zero(t, store.saves)
	assert.Zero(t, store.writes)
}

func TestRebuildAbortsOnTransportError(t *testing.T) {
	catalog, downloader, store := newFixture(t)
	downloader.errs["https://w.wallhaven.cc/full/aa/a.png"] = errs.New(errs.ErrorTypeTransport, "request failed")
	writeCollection(t, store, nil, storage.Index{
		{Filename: "a.png", Tags: []string{}, SourceURL: "https://wallhaven.cc/w/aaaa", AssetPath: "https://w.wallhaven.cc/full/aa/a.png"},
	})

	engine := NewEngine(catalog, downloader, store)
	_, err := engine.Rebuild(context.Background(), "Favorites")
	assert.True(t, errs.Is(err, errs.ErrorTypeTransport))
	assert.Empty(t, catalog.lookups)
}

func TestInspect(t *testing.T) {
	_, _, store := newFixture(t)
	writeCollection(t, store, []string{"a.png", "orphan.png"}, storage.Index{
		{Filename: "a.png", Tags: []string{}, SourceURL: "https://wallhaven.cc/w/a"},
		{Filename: "missing.png", Tags: []string{}, SourceURL: "https://wallhaven.cc/w/m"},
	})

	engine := NewEngine(nil, nil, store)
	diff, err := engine.PlanPrune("Favorites")
	require.NoError(t, err)

	assert.Equal(t, 2, diff.Records)
	assert.Equal(t, 2, diff.Files)
	assert.Equal(t, []string{"missing.png"}, diff.Missing)
	assert.Equal(t, []string{"orphan.png"}, diff.Orphans)
	assert.Equal(t, int64(len("a.png")+len("orphan.png")), diff.Size)
	assert.False(t, diff.Consistent())
	assert.Zero(t, store.saves)
}

func TestAddLocalFile(t *testing.T) {
	_, downloader, store := newFixture(t)
	source := filepath.Join(t.TempDir(), "sunset")
	require.NoError(t, os.WriteFile(source, pngHeader, 0o644))

	engine := NewEngine(nil, downloader, store, WithNameGenerator(sequentialNames()))
	record, err := engine.Add(context.Background(), "Manual", AddRequest{Source: source, Tags: []string{"sunset"}})
	require.NoError(t, err)

	assert.Equal(t, "file1.png", record.Filename)
	assert.Equal(t, source, record.SourceURL)
	assert.Empty(t, record.AssetPath)
	assert.Empty(t, downloader.calls)
	assert.True(t, store.HasAsset("Manual", "file1.png"))

	_, err = engine.Add(context.Background(), "Manual", AddRequest{Source: source})
	assert.True(t, errors.Is(err, ErrDuplicate))

	index, _, err := store.LoadIndex("Manual")
	require.NoError(t, err)
	assert.Len(t, index, 1)
}

func TestAddRemoteSource(t *testing.T) {
	_, downloader, store := newFixture(t)
	downloader.assets["https://example.com/art.webp"] = []byte("RIFF....WEBPVP8 ")

	engine := NewEngine(nil, downloader, store, WithNameGenerator(sequentialNames()))
	record, err := engine.Add(context.Background(), "Manual", AddRequest{
		Source:    "https://example.com/art.webp",
		SourceURL: "https://wallhaven.cc/w/custom",
	})
	require.NoError(t, err)

	assert.Equal(t, "file1.webp", record.Filename)
	assert.Equal(t, "https://wallhaven.cc/w/custom", record.SourceURL)
	assert.Equal(t, "https://example.com/art.webp", record.AssetPath)
	assert.Equal(t, []string{}, record.Tags)
}

func TestAddRejectsUnsupportedType(t *testing.T) {
	_, downloader, store := newFixture(t)
	source := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(source, []byte("hello"), 0o644))

	engine := NewEngine(nil, downloader, store)
	_, err := engine.Add(context.Background(), "Manual", AddRequest{Source: source})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported file type "txt"`)
	assert.False(t, store.CollectionExists("Manual"))
}

func TestAddMissingFile(t *testing.T) {
	_, downloader, store := newFixture(t)
	engine := NewEngine(nil, downloader, store)

	_, err := engine.Add(context.Background(), "Manual", AddRequest{Source: filepath.Join(t.TempDir(), "nope.png")})
	assert.True(t, errs.Is(err, errs.ErrorTypeStorage))
}

// TestSyncAgainstServer runs a full sync through the real client and catalog
func TestSyncAgainstServer(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/TSear/15":
			page := r.URL.Query().Get("page")
			id := map[string]string{"1": "aa11", "2": "bb22"}[page]
			fmt.Fprintf(w, `{"data":[{"id":%q,"url":"https://wallhaven.cc/w/%s","path":"%s/full/%s.png"}],"meta":{"current_page":%s,"last_page":2}}`,
				id, id, server.URL, id, page)
		case "/w/aa11", "/w/bb22":
			id := r.URL.Path[len("/w/"):]
			fmt.Fprintf(w, `{"data":{"id":%q,"url":"https://wallhaven.cc/w/%s","path":"%s/full/%s.png","tags":[{"id":1,"name":"forest"}]}}`,
				id, id, server.URL, id)
		case "/full/aa11.png", "/full/bb22.png":
			assert.Equal(t, "image/*", r.Header.Get("Accept"))
			w.Write(pngHeader)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client := wallhaven.NewClient()
	catalog := wallhaven.NewCatalog(client, server.URL, nil)
	_, _, store := newFixture(t)

	engine := NewEngine(catalog, client, store)
	result, err := engine.Sync(context.Background(), "TSear", favorites)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Downloaded)
	assert.Equal(t, int64(2*len(pngHeader)), result.Bytes)

	index, _, err := store.LoadIndex("Favorites")
	require.NoError(t, err)
	require.Len(t, index, 2)
	assert.Equal(t, []string{"forest"}, index[0].Tags)
	assert.Equal(t, "https://wallhaven.cc/w/bb22", index[1].SourceURL)

	again, err := engine.Sync(context.Background(), "TSear", favorites)
	require.NoError(t, err)
	assert.True(t, again.UpToDate())
}
