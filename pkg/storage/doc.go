// Package storage keeps the local mirror on disk.
//
// Layout under the storage root:
//
//	<root>/.wallheaven-sync.lock
//	<root>/<collection label>/index.json
//	<root>/<collection label>/<uuid>.<ext>
//
// index.json is a JSON array of records and is the only record of which
// files belong to the collection. It is always replaced atomically.
package storage
