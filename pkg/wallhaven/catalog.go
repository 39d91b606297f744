package wallhaven

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	errs "wallheaven-sync/pkg/errors"
	"wallheaven-sync/pkg/logger"
)

// Fetcher is the part of Client the catalog needs
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// Catalog reads collections, their items and per-item details from the API
type Catalog struct {
	fetcher Fetcher
	baseURL string
	logger  logger.Logger
}

// NewCatalog creates a catalog over the given fetcher; an empty baseURL means BaseURL
func NewCatalog(fetcher Fetcher, baseURL string, log logger.Logger) *Catalog {
	if baseURL == "" {
		baseURL = BaseURL
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Catalog{fetcher: fetcher, baseURL: baseURL, logger: log}
}

// ListCollections returns the user's collections.
// A "Nothing here" answer (unknown user or no collections) is an empty list.
func (c *Catalog) ListCollections(ctx context.Context, username string) ([]CollectionSummary, error) {
	url := CollectionsURL(c.baseURL, username)

	var env collectionsEnvelope
	if err := c.getJSON(ctx, url, &env); err != nil {
		return nil, err
	}

	if env.Data != nil {
		return *env.Data, nil
	}
	if env.Error != nil {
		if *env.Error == NothingHere {
			return []CollectionSummary{}, nil
		}
		return nil, errs.New(errs.ErrorTypeProtocol, fmt.Sprintf("unhandled error response: %s", *env.Error))
	}
	return nil, errs.New(errs.ErrorTypeProtocol, "collections response has neither data nor error")
}

// ListItems returns every item of a collection, following pagination until meta.last_page
func (c *Catalog) ListItems(ctx context.Context, username string, collectionID int) ([]RemoteItem, error) {
	items := []RemoteItem{}

	for page := 1; ; page++ {
		url := CollectionItemsURL(c.baseURL, username, collectionID, page)

		var env itemsEnvelope
		if err := c.getJSON(ctx, url, &env); err != nil {
			return nil, err
		}
		if env.Data == nil {
			if env.Error != nil {
				return nil, errs.New(errs.ErrorTypeProtocol, fmt.Sprintf("unhandled error response: %s", *env.Error))
			}
			return nil, errs.New(errs.ErrorTypeProtocol, "collection page has no data")
		}
		items = append(items, *env.Data...)

		lastPage := 0
		if env.Meta != nil {
			lastPage = env.Meta.LastPage
		}

		c.logger.DebugWithFields("fetched collection page", map[string]interface{}{
			"collection_id": collectionID,
			"page":          page,
			"last_page":     lastPage,
			"items":         len(*env.Data),
		})

		if page >= lastPage {
			return items, nil
		}
	}
}

// FetchDetail returns the asset path and tags of a wallpaper
func (c *Catalog) FetchDetail(ctx context.Context, id string) (*ItemDetail, error) {
	url := DetailURL(c.baseURL, id)

	var env detailEnvelope
	if err := c.getJSON(ctx, url, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		if env.Error != nil {
			return nil, errs.New(errs.ErrorTypeProtocol, fmt.Sprintf("wallpaper %s: %s", id, *env.Error))
		}
		return nil, errs.New(errs.ErrorTypeProtocol, fmt.Sprintf("wallpaper %s: detail response has no data", id))
	}

	detail := &ItemDetail{
		ID:   env.Data.ID,
		URL:  env.Data.URL,
		Path: env.Data.Path,
		Tags: make([]string, 0, len(env.Data.Tags)),
	}
	if detail.ID == "" {
		detail.ID = id
	}
	for _, tag := range env.Data.Tags {
		detail.Tags = append(detail.Tags, tag.Name)
	}
	return detail, nil
}

func (c *Catalog) getJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, target); err != nil {
		preview := string(resp.Body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"body_preview": preview,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeProtocol,
			Message: fmt.Sprintf("failed to parse response from %s", url),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}
	return nil
}

// FindCollection selects a collection by exact label, then by numeric id
func FindCollection(collections []CollectionSummary, selector string) (CollectionSummary, bool) {
	selector = strings.TrimSpace(selector)
	for _, col := range collections {
		if col.Label == selector {
			return col, true
		}
	}
	if id, err := strconv.Atoi(selector); err == nil {
		for _, col := range collections {
			if col.ID == id {
				return col, true
			}
		}
	}
	return CollectionSummary{}, false
}
