package main

import (
	"fmt"

	"wallheaven-sync/pkg/auth"
	"wallheaven-sync/pkg/config"
	"wallheaven-sync/pkg/logger"
	"wallheaven-sync/pkg/reconcile"
	"wallheaven-sync/pkg/storage"
	"wallheaven-sync/pkg/ui"
	"wallheaven-sync/pkg/wallhaven"
)

// app bundles the components one command run needs
type app struct {
	cfg      *config.Config
	log      logger.Logger
	store    *storage.Store
	client   *wallhaven.Client
	catalog  *wallhaven.Catalog
	engine   *reconcile.Engine
	prompter *ui.Prompter
	unlock   func() error
}

// newApp wires the client, catalog, store and engine from the loaded configuration.
// With lock set the storage root is locked until close is called.
func newApp(username string, lock bool) (*app, error) {
	store := storage.New(cfg.Storage.Root)
	if !store.Exists() {
		return nil, fmt.Errorf("storage directory %s does not exist; run 'wallheaven-sync init' or set %s",
			cfg.Storage.Root, config.StoragePathEnv)
	}

	a := &app{
		cfg:      cfg,
		log:      logger.GetLogger(),
		store:    store,
		prompter: ui.NewPrompter(stdin, ui.Stdout),
	}

	if lock {
		unlock, err := store.Lock()
		if err != nil {
			return nil, err
		}
		a.unlock = unlock
	}

	if cfg.Wallhaven.APIKey == "" && username != "" {
		if manager, err := auth.NewManager(); err == nil {
			cfg.Wallhaven.APIKey = manager.APIKey(username)
		} else {
			a.log.WithError(err).Debug("Credential manager unavailable")
		}
	}

	notifier := ui.NewConsoleNotifier(ui.Stdout)
	a.client = wallhaven.NewClientFromConfig(cfg, notifier, a.log)
	a.catalog = wallhaven.NewCatalog(a.client, cfg.Wallhaven.APIURL, a.log)
	a.engine = reconcile.NewEngine(a.catalog, a.client, store,
		reconcile.WithNotifier(notifier),
		reconcile.WithLogger(a.log),
		reconcile.WithFlushEachItem(cfg.Sync.FlushEachItem),
		reconcile.WithFallbackExtension(cfg.Download.FallbackExtension),
	)
	return a, nil
}

func (a *app) close() {
	if a.unlock == nil {
		return
	}
	if err := a.unlock(); err != nil {
		a.log.WithError(err).Warn("Failed to release storage lock")
	}
}

// selectLocalCollection returns label if given, otherwise prompts among the
// collection directories under the storage root
func (a *app) selectLocalCollection(label string) (string, error) {
	if label != "" {
		if !a.store.CollectionExists(label) {
			return "", fmt.Errorf("collection %q not found in %s", label, a.store.Root())
		}
		return label, nil
	}

	labels, err := a.store.ListCollectionDirectories()
	if err != nil {
		return "", err
	}
	if len(labels) == 0 {
		ui.PrintWarning("No collections in " + a.store.Root())
		return "", errBenign
	}

	choice, err := a.prompter.SelectFromList("Local collections:", labels)
	if err != nil {
		return "", err
	}
	return labels[choice], nil
}

// confirm asks the question unless assumeYes is set; a declined answer is benign
func (a *app) confirm(question string, assumeYes bool) error {
	if assumeYes {
		return nil
	}
	ok, err := a.prompter.Confirm(question)
	if err != nil {
		return err
	}
	if !ok {
		ui.PrintWarning("Aborted")
		return errBenign
	}
	return nil
}
