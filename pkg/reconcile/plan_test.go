package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wallheaven-sync/pkg/storage"
	"wallheaven-sync/pkg/wallhaven"
)

func item(id string) wallhaven.RemoteItem {
	return wallhaven.RemoteItem{ID: id, URL: "https://wallhaven.cc/w/" + id}
}

func record(id string) storage.Record {
	return storage.Record{Filename: id + ".jpg", SourceURL: "https://wallhaven.cc/w/" + id, Tags: []string{}}
}

func TestComputeSyncPlan(t *testing.T) {
	tests := []struct {
		name   string
		remote []wallhaven.RemoteItem
		index  storage.Index
		want   []string
	}{
		{"empty index plans everything", []wallhaven.RemoteItem{item("a"), item("b")}, nil, []string{"a", "b"}},
		{"synced items are skipped", []wallhaven.RemoteItem{item("a"), item("b"), item("c")}, storage.Index{record("b")}, []string{"a", "c"}},
		{"remote order is kept", []wallhaven.RemoteItem{item("c"), item("a"), item("b")}, storage.Index{record("a")}, []string{"c", "b"}},
		{"duplicates pass through", []wallhaven.RemoteItem{item("a"), item("b"), item("a")}, storage.Index{record("b")}, []string{"a", "a"}},
		{"fully synced", []wallhaven.RemoteItem{item("a")}, storage.Index{record("a"), record("z")}, []string{}},
		{"no remote items", nil, storage.Index{record("a")}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := ComputeSyncPlan(tt.remote, tt.index)
			ids := make([]string, 0, len(plan))
			for _, p := range plan {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestComputeSyncPlanMatchesOnURLOnly(t *testing.T) {
	remote := []wallhaven.RemoteItem{{ID: "a", URL: "https://wallhaven.cc/w/a", Path: "https://w.wallhaven.cc/full/a.png"}}
	index := storage.Index{{Filename: "x.png", AssetPath: "https://w.wallhaven.cc/full/a.png", SourceURL: "https://wallhaven.cc/w/other"}}

	assert.Len(t, ComputeSyncPlan(remote, index), 1)
}

func TestExtensionOf(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"https://w.wallhaven.cc/full/8o/wallhaven-8oxreo.png", "png"},
		{"https://w.wallhaven.cc/full/8o/wallhaven-8oxreo.JPG", "jpg"},
		{"https://example.com/image.webp?size=large", "webp"},
		{"https://example.com/image", ""},
		{"https://example.com/image.t@r", ""},
		{"/home/user/Pictures/sunset.jpeg", "jpeg"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			assert.Equal(t, tt.want, extensionOf(tt.location))
		})
	}
}
