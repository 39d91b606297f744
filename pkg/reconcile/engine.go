package reconcile

import (
	"context"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"

	errs "wallheaven-sync/pkg/errors"
	"wallheaven-sync/pkg/logger"
	"wallheaven-sync/pkg/storage"
	"wallheaven-sync/pkg/ui"
	"wallheaven-sync/pkg/wallhaven"
)

// DefaultFallbackExtension is used when an asset path carries no usable extension
const DefaultFallbackExtension = "jpg"

// Engine reconciles remote collections with the local store
type Engine struct {
	catalog     Catalog
	downloader  Downloader
	store       Storage
	notifier    ui.Notifier
	logger      logger.Logger
	flushEach   bool
	fallbackExt string
	newName     func() string
}

// Option configures an Engine
type Option func(*Engine)

// WithNotifier sets the progress notifier
func WithNotifier(n ui.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithFlushEachItem controls whether the index is saved after every downloaded item
// or once at the end of a run
func WithFlushEachItem(flush bool) Option {
	return func(e *Engine) { e.flushEach = flush }
}

// WithFallbackExtension sets the extension used when none can be derived
func WithFallbackExtension(ext string) Option {
	return func(e *Engine) {
		if ext = strings.TrimPrefix(strings.ToLower(ext), "."); ext != "" {
			e.fallbackExt = ext
		}
	}
}

// WithNameGenerator replaces the random filename stem generator
func WithNameGenerator(gen func() string) Option {
	return func(e *Engine) { e.newName = gen }
}

// NewEngine creates an engine over the given catalog, downloader and store
func NewEngine(catalog Catalog, downloader Downloader, store Storage, opts ...Option) *Engine {
	e := &Engine{
		catalog:     catalog,
		downloader:  downloader,
		store:       store,
		notifier:    ui.NopNotifier{},
		logger:      logger.NewNopLogger(),
		flushEach:   true,
		fallbackExt: DefaultFallbackExtension,
		newName:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync downloads every item of the collection that the local index does not know yet.
// Per-item download and protocol errors are counted and skipped; any other error aborts.
func (e *Engine) Sync(ctx context.Context, username string, collection wallhaven.CollectionSummary) (*SyncResult, error) {
	label := collection.Label
	log := e.logger.WithFields(map[string]interface{}{
		"collection": label,
		"username":   username,
	})
	result := &SyncResult{Collection: label}

	remote, err := e.catalog.ListItems(ctx, username, collection.ID)
	if err != nil {
		return result, err
	}
	result.Remote = len(remote)

	index, _, err := e.store.LoadIndex(label)
	if err != nil {
		return result, err
	}

	plan := uniqueByURL(ComputeSyncPlan(remote, index))
	result.Planned = len(plan)
	if len(plan) == 0 {
		e.notifier.Info("Collection %s is up to date", label)
		log.Info("Collection up to date")
		return result, nil
	}

	log.InfoWithFields("Sync started", map[string]interface{}{
		"remote":  len(remote),
		"planned": len(plan),
	})

	merged := make(storage.Index, len(index), len(index)+len(plan))
	copy(merged, index)

	for i, item := range plan {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.notifier.Progress(i+1, len(plan), progressLabel(item))

		record, size, err := e.fetchItem(ctx, item)
		if err != nil {
			if errs.IsFatal(err) {
				log.WithError(err).ErrorWithFields("Sync aborted", map[string]interface{}{"item": item.ID})
				return result, err
			}
			e.recordFailure(log, &result.Failures, item.ID, err)
			result.Failed++
			continue
		}

		if err := e.store.WriteAsset(label, record.Filename, record.data); err != nil {
			return result, err
		}
		merged = append(merged, record.Record)
		result.Downloaded++
		result.Bytes += size

		if e.flushEach {
			if err := e.store.SaveIndex(label, merged); err != nil {
				return result, err
			}
		}
		logger.LogSyncProgress(log, label, i+1, len(plan))
	}

	if !e.flushEach && result.Downloaded > 0 {
		if err := e.store.SaveIndex(label, merged); err != nil {
			return result, err
		}
	}

	log.InfoWithFields("Sync finished", map[string]interface{}{
		"downloaded": result.Downloaded,
		"failed":     result.Failed,
		"bytes":      result.Bytes,
	})
	return result, nil
}

// uniqueByURL drops repeated URLs, keeping the first occurrence.
// A listing can repeat an item that moved across a page boundary.
func uniqueByURL(items []wallhaven.RemoteItem) []wallhaven.RemoteItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, item := range items {
		if _, ok := seen[item.URL]; ok {
			continue
		}
		seen[item.URL] = struct{}{}
		out = append(out, item)
	}
	return out
}

// progressLabel names an item by its page URL without the scheme
func progressLabel(item wallhaven.RemoteItem) string {
	if item.URL == "" {
		return item.ID
	}
	label := strings.TrimPrefix(item.URL, "https://")
	return strings.TrimPrefix(label, "http://")
}

type fetchedItem struct {
	storage.Record
	data []byte
}

func (e *Engine) fetchItem(ctx context.Context, item wallhaven.RemoteItem) (*fetchedItem, int64, error) {
	detail, err := e.catalog.FetchDetail(ctx, item.ID)
	if err != nil {
		return nil, 0, err
	}

	data, err := e.downloader.DownloadAsset(ctx, detail.Path)
	if err != nil {
		return nil, 0, err
	}

	tags := detail.Tags
	if tags == nil {
		tags = []string{}
	}
	return &fetchedItem{
		Record: storage.Record{
			Filename:  e.mintFilename(detail.Path),
			Tags:      tags,
			SourceURL: item.URL,
			AssetPath: detail.Path,
		},
		data: data,
	}, int64(len(data)), nil
}

// Prune deletes files no record references and drops records whose file is gone
func (e *Engine) Prune(ctx context.Context, label string) (*PruneResult, error) {
	index, files, err := e.loadCollection(label)
	if err != nil {
		return nil, err
	}
	log := e.logger.WithField("collection", label)
	result := &PruneResult{Collection: label}

	referenced := index.Filenames()
	present := make(map[string]struct{}, len(files))
	for _, name := range files {
		if _, ok := referenced[name]; ok {
			present[name] = struct{}{}
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := e.store.DeleteAsset(label, name); err != nil {
			return result, err
		}
		log.WithField("file", name).Info("Deleted unreferenced file")
		result.Deleted = append(result.Deleted, name)
	}

	kept := make(storage.Index, 0, len(index))
	for _, record := range index {
		if _, ok := present[record.Filename]; ok {
			kept = append(kept, record)
			continue
		}
		result.Dropped = append(result.Dropped, record)
	}
	result.Kept = len(kept)

	if err := e.store.SaveIndex(label, kept); err != nil {
		return result, err
	}

	log.InfoWithFields("Prune finished", map[string]interface{}{
		"deleted": len(result.Deleted),
		"dropped": len(result.Dropped),
		"kept":    result.Kept,
	})
	return result, nil
}

// Rebuild re-downloads every record whose file is missing from disk.
// When the stored asset path fails, the current path is looked up through the
// wallpaper's detail page and the record is updated.
func (e *Engine) Rebuild(ctx context.Context, label string) (*RebuildResult, error) {
	index, files, err := e.loadCollection(label)
	if err != nil {
		return nil, err
	}
	log := e.logger.WithField("collection", label)
	result := &RebuildResult{Collection: label}

	present := make(map[string]struct{}, len(files))
	for _, name := range files {
		present[name] = struct{}{}
	}

	var missing []int
	for i, record := range index {
		if _, ok := present[record.Filename]; !ok {
			missing = append(missing, i)
		}
	}
	result.Missing = len(missing)
	if len(missing) == 0 {
		e.notifier.Info("Collection %s has no missing files", label)
		return result, nil
	}

	changed := false
	for n, i := range missing {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		record := &index[i]
		e.notifier.Progress(n+1, len(missing), record.Filename)

		data, assetPath, err := e.restore(ctx, *record)
		if err != nil {
			if errs.IsFatal(err) {
				return result, err
			}
			e.recordFailure(log, &result.Failures, record.Filename, err)
			result.Failed++
			continue
		}

		if err := e.store.WriteAsset(label, record.Filename, data); err != nil {
			return result, err
		}
		if assetPath != record.AssetPath {
			record.AssetPath = assetPath
			changed = true
		}
		result.Restored++
		result.Bytes += int64(len(data))
	}

	if changed {
		if err := e.store.SaveIndex(label, index); err != nil {
			return result, err
		}
	}

	log.InfoWithFields("Rebuild finished", map[string]interface{}{
		"missing":  result.Missing,
		"restored": result.Restored,
		"failed":   result.Failed,
	})
	return result, nil
}

// restore fetches a record's bytes, returning the asset path that worked
func (e *Engine) restore(ctx context.Context, record storage.Record) ([]byte, string, error) {
	var lastErr error
	if record.AssetPath != "" {
		data, err := e.downloader.DownloadAsset(ctx, record.AssetPath)
		if err == nil {
			return data, record.AssetPath, nil
		}
		if !errs.Is(err, errs.ErrorTypeDownload) {
			return nil, "", err
		}
		lastErr = err
	}

	id, ok := wallhaven.ParseWallpaperID(record.SourceURL)
	if !ok {
		if lastErr == nil {
			lastErr = errs.New(errs.ErrorTypeDownload, fmt.Sprintf("no asset location for %s", record.Filename))
		}
		return nil, "", lastErr
	}

	detail, err := e.catalog.FetchDetail(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if detail.Path == record.AssetPath && lastErr != nil {
		return nil, "", lastErr
	}

	data, err := e.downloader.DownloadAsset(ctx, detail.Path)
	if err != nil {
		return nil, "", err
	}
	return data, detail.Path, nil
}

// Inspect compares a collection's index against the files in its directory
func (e *Engine) Inspect(label string) (*Diff, error) {
	index, files, err := e.loadCollection(label)
	if err != nil {
		return nil, err
	}

	diff := &Diff{Collection: label, Records: len(index), Files: len(files)}

	present := make(map[string]struct{}, len(files))
	for _, name := range files {
		present[name] = struct{}{}
	}
	for _, record := range index {
		if _, ok := present[record.Filename]; !ok {
			diff.Missing = append(diff.Missing, record.Filename)
		}
	}

	referenced := index.Filenames()
	for _, name := range files {
		if _, ok := referenced[name]; !ok {
			diff.Orphans = append(diff.Orphans, name)
		}
	}

	if diff.Size, err = e.store.AssetsSize(label); err != nil {
		return nil, err
	}
	return diff, nil
}

// PlanPrune reports what Prune would change without touching anything
func (e *Engine) PlanPrune(label string) (*Diff, error) {
	return e.Inspect(label)
}

func (e *Engine) loadCollection(label string) (storage.Index, []string, error) {
	index, exists, err := e.store.LoadIndex(label)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, errs.Wrap(errs.ErrorTypeStorage, storage.ErrCollectionNotFound, label)
	}

	files, err := e.store.ListAssetFilenames(label)
	if err != nil {
		return nil, nil, err
	}
	return index, files, nil
}

func (e *Engine) recordFailure(log logger.Logger, failures *[]ItemFailure, id string, err error) {
	log.WithError(err).WarnWithFields("Item skipped", map[string]interface{}{"item": id})
	e.notifier.Info("Skipping %s: %v", id, err)
	*failures = append(*failures, ItemFailure{ID: id, Err: err})
}

func (e *Engine) mintFilename(assetPath string) string {
	ext := extensionOf(assetPath)
	if ext == "" {
		ext = e.fallbackExt
	}
	return e.newName() + "." + ext
}

// extensionOf returns the lower-cased extension of a URL or file path,
// or "" when it is absent or not purely alphanumeric
func extensionOf(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(location), "."))
	if ext == "" {
		return ""
	}
	for _, r := range ext {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return ""
		}
	}
	return ext
}
