package storage

import "encoding/json"

// Record is one locally mirrored asset
type Record struct {
	Filename  string   `json:"filename"`
	Tags      []string `json:"tags"`
	SourceURL string   `json:"sourceUrl"`
	AssetPath string   `json:"assetPath"`
}

// Index is the ordered list of records of one collection, persisted as index.json
type Index []Record

// UnmarshalJSON accepts the older source_url key written by earlier versions
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		Filename     string   `json:"filename"`
		Tags         []string `json:"tags"`
		SourceURL    string   `json:"sourceUrl"`
		LegacySource string   `json:"source_url"`
		AssetPath    string   `json:"assetPath"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Filename = raw.Filename
	r.Tags = raw.Tags
	r.SourceURL = raw.SourceURL
	if r.SourceURL == "" {
		r.SourceURL = raw.LegacySource
	}
	r.AssetPath = raw.AssetPath
	return nil
}

// MarshalJSON never writes tags as null
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	p := plain(r)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return json.Marshal(p)
}

// SourceURLs returns the set of source URLs in the index
func (idx Index) SourceURLs() map[string]struct{} {
	set := make(map[string]struct{}, len(idx))
	for _, r := range idx {
		set[r.SourceURL] = struct{}{}
	}
	return set
}

// Filenames returns the set of filenames referenced by the index
func (idx Index) Filenames() map[string]struct{} {
	set := make(map[string]struct{}, len(idx))
	for _, r := range idx {
		set[r.Filename] = struct{}{}
	}
	return set
}

// FindBySourceURL returns the position of the record with the given source URL, or -1
func (idx Index) FindBySourceURL(sourceURL string) int {
	for i, r := range idx {
		if r.SourceURL == sourceURL {
			return i
		}
	}
	return -1
}
