package reconcile

import "wallheaven-sync/pkg/storage"

// ItemFailure is a recoverable failure of a single item
type ItemFailure struct {
	ID  string
	Err error
}

// SyncResult summarises a sync run
type SyncResult struct {
	Collection string
	Remote     int
	Planned    int
	Downloaded int
	Failed     int
	Bytes      int64
	Failures   []ItemFailure
}

// UpToDate reports whether nothing had to be fetched
func (r *SyncResult) UpToDate() bool {
	return r.Planned == 0
}

// PruneResult summarises a prune
type PruneResult struct {
	Collection string
	Deleted    []string
	Dropped    []storage.Record
	Kept       int
}

// RebuildResult summarises a rebuild
type RebuildResult struct {
	Collection string
	Missing    int
	Restored   int
	Failed     int
	Bytes      int64
	Failures   []ItemFailure
}

// Diff compares a collection's index against its directory
type Diff struct {
	Collection string
	Records    int
	Files      int
	// Missing lists filenames referenced by the index but absent on disk
	Missing []string
	// Orphans lists files on disk that no record references
	Orphans []string
	Size    int64
}

// Consistent reports whether index and directory agree
func (d *Diff) Consistent() bool {
	return len(d.Missing) == 0 && len(d.Orphans) == 0
}
