// Package reconcile brings a local collection in line with its remote counterpart.
//
// Sync fetches the remote items the index does not know yet. Items are matched
// by their canonical page URL only, so renaming or re-tagging on the remote side
// never causes a re-download.
//
// Prune and Rebuild repair a collection whose directory and index disagree:
// Prune converges both to their intersection, Rebuild re-downloads records whose
// file is gone.
//
//	engine := reconcile.NewEngine(catalog, client, store,
//	    reconcile.WithNotifier(ui.NewConsoleNotifier(os.Stdout)),
//	    reconcile.WithFlushEachItem(cfg.Sync.FlushEachItem),
//	)
//	result, err := engine.Sync(ctx, "TSear", collection)
package reconcile
