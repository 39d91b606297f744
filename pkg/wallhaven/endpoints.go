package wallhaven

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// BaseURL is the public Wallhaven API root
	BaseURL = "https://wallhaven.cc/api/v1"

	// NothingHere is the error message Wallhaven returns for an empty or unknown resource
	NothingHere = "Nothing here"
)

// CollectionsURL returns the collection list endpoint for a user
func CollectionsURL(base, username string) string {
	return fmt.Sprintf("%s/collections/%s", strings.TrimRight(base, "/"), url.PathEscape(username))
}

// CollectionItemsURL returns one page of a collection's item listing
func CollectionItemsURL(base, username string, collectionID, page int) string {
	params := url.Values{}
	params.Set("page", fmt.Sprint(page))
	return fmt.Sprintf("%s/collections/%s/%d?%s",
		strings.TrimRight(base, "/"), url.PathEscape(username), collectionID, params.Encode())
}

// DetailURL returns the detail endpoint for a wallpaper id
func DetailURL(base, id string) string {
	return fmt.Sprintf("%s/w/%s", strings.TrimRight(base, "/"), url.PathEscape(id))
}

var wallpaperURLPattern = regexp.MustCompile(`^https?://(?:www\.)?wallhaven\.cc/w/([A-Za-z0-9]+)/?$`)

// ParseWallpaperID extracts the wallpaper id from a canonical page URL
// such as https://wallhaven.cc/w/8oxreo.
func ParseWallpaperID(sourceURL string) (string, bool) {
	m := wallpaperURLPattern.FindStringSubmatch(strings.TrimSpace(sourceURL))
	if m == nil {
		return "", false
	}
	return m[1], true
}
