package reconcile

import (
	"context"

	"wallheaven-sync/pkg/storage"
	"wallheaven-sync/pkg/wallhaven"
)

// Catalog lists remote items and resolves their details
type Catalog interface {
	ListItems(ctx context.Context, username string, collectionID int) ([]wallhaven.RemoteItem, error)
	FetchDetail(ctx context.Context, id string) (*wallhaven.ItemDetail, error)
}

// Downloader fetches asset bytes
type Downloader interface {
	DownloadAsset(ctx context.Context, url string) ([]byte, error)
}

// Storage is the local index and asset store
type Storage interface {
	LoadIndex(label string) (storage.Index, bool, error)
	SaveIndex(label string, index storage.Index) error
	WriteAsset(label, filename string, data []byte) error
	DeleteAsset(label, filename string) error
	ListAssetFilenames(label string) ([]string, error)
	AssetsSize(label string) (int64, error)
}
