package reconcile

import (
	"wallheaven-sync/pkg/storage"
	"wallheaven-sync/pkg/wallhaven"
)

// ComputeSyncPlan returns the remote items whose URL matches no record's source URL,
// in remote order. Duplicates in remote are kept as they are.
func ComputeSyncPlan(remote []wallhaven.RemoteItem, index storage.Index) []wallhaven.RemoteItem {
	synced := index.SourceURLs()

	plan := make([]wallhaven.RemoteItem, 0, len(remote))
	for _, item := range remote {
		if _, ok := synced[item.URL]; !ok {
			plan = append(plan, item)
		}
	}
	return plan
}
