package reconcile

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	errs "wallheaven-sync/pkg/errors"
	"wallheaven-sync/pkg/storage"
)

// ErrDuplicate is returned by Add when the source URL is already indexed
var ErrDuplicate = stderrors.New("source already registered in collection")

var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
	"gif":  true,
}

var contentTypeExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// AddRequest describes an asset registered by hand
type AddRequest struct {
	// Source is an http(s) URL or a local file path
	Source string
	// SourceURL overrides the identity stored in the index; defaults to Source
	SourceURL string
	Tags      []string
}

// Add registers one externally sourced asset in a collection
func (e *Engine) Add(ctx context.Context, label string, req AddRequest) (*storage.Record, error) {
	if req.Source == "" {
		return nil, errs.New(errs.ErrorTypeStorage, "no source given")
	}

	sourceURL := req.SourceURL
	if sourceURL == "" {
		sourceURL = req.Source
		if !isRemote(req.Source) {
			if abs, err := filepath.Abs(req.Source); err == nil {
				sourceURL = abs
			}
		}
	}

	index, _, err := e.store.LoadIndex(label)
	if err != nil {
		return nil, err
	}
	if index.FindBySourceURL(sourceURL) >= 0 {
		return nil, errs.Wrap(errs.ErrorTypeStorage, ErrDuplicate, sourceURL)
	}

	var (
		data      []byte
		assetPath string
	)
	if isRemote(req.Source) {
		if data, err = e.downloader.DownloadAsset(ctx, req.Source); err != nil {
			return nil, err
		}
		assetPath = req.Source
	} else {
		if data, err = os.ReadFile(req.Source); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeStorage, err, fmt.Sprintf("failed to read %s", req.Source))
		}
	}

	ext := extensionOf(filepath.ToSlash(req.Source))
	if ext == "" {
		ext = contentTypeExtensions[http.DetectContentType(data)]
	}
	if ext == "" {
		ext = e.fallbackExt
	}
	if !allowedExtensions[ext] {
		return nil, errs.New(errs.ErrorTypeStorage, fmt.Sprintf("unsupported file type %q", ext))
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	record := storage.Record{
		Filename:  e.newName() + "." + ext,
		Tags:      tags,
		SourceURL: sourceURL,
		AssetPath: assetPath,
	}

	if err := e.store.WriteAsset(label, record.Filename, data); err != nil {
		return nil, err
	}
	if err := e.store.SaveIndex(label, append(index, record)); err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"collection": label,
		"file":       record.Filename,
		"source":     sourceURL,
	}).Info("Asset added")
	return &record, nil
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
