package wallhaven

// CollectionSummary is one entry of a user's collection list
type CollectionSummary struct {
	ID     int    `json:"id"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
	Views  int    `json:"views,omitempty"`
	Public int    `json:"public,omitempty"`
}

// RemoteItem is a wallpaper as listed inside a collection.
// URL is the canonical page URL and identifies the item across runs.
type RemoteItem struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Path string `json:"path"`
}

// ItemDetail is the per-wallpaper record with its current asset location and tags
type ItemDetail struct {
	ID   string
	URL  string
	Path string
	Tags []string
}

// ErrorEnvelope is the body Wallhaven returns instead of data
type ErrorEnvelope struct {
	Error *string `json:"error"`
}

type collectionsEnvelope struct {
	ErrorEnvelope
	Data *[]CollectionSummary `json:"data"`
}

type itemsEnvelope struct {
	ErrorEnvelope
	Data *[]RemoteItem `json:"data"`
	Meta *struct {
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
		PerPage     int `json:"per_page"`
		Total       int `json:"total"`
	} `json:"meta"`
}

type detailEnvelope struct {
	ErrorEnvelope
	Data *struct {
		ID   string `json:"id"`
		URL  string `json:"url"`
		Path string `json:"path"`
		Tags []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"tags"`
	} `json:"data"`
}
