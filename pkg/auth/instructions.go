package auth

import (
	"fmt"
	"io"
)

// ShowAPIKeyGuide explains where to find a Wallhaven API key
func ShowAPIKeyGuide(w io.Writer) {
	fmt.Fprintln(w, "A Wallhaven API key is only needed for private collections and NSFW items.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  1. Log in at https://wallhaven.cc")
	fmt.Fprintln(w, "  2. Open https://wallhaven.cc/settings/account")
	fmt.Fprintln(w, "  3. Copy the value shown under \"API Key\"")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "The key can also be supplied through %s.\n", APIKeyEnv)
}
