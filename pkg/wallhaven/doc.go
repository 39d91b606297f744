// Package wallhaven talks to the Wallhaven API.
//
// Client is the only place network I/O happens. Every GET goes through one
// loop: send, read the whole body, and if the response carries Retry-After,
// announce the wait, sleep and send the identical request again. The retry
// Policy can bound that loop; by default it is unbounded.
//
// Catalog maps the three JSON endpoints used by the sync tool onto domain
// types:
//
//	GET /collections/{username}
//	GET /collections/{username}/{id}?page=N
//	GET /w/{id}
//
// Wallhaven reports failures with an {"error": "..."} envelope in place of
// {"data": ...}. "Nothing here" on the collection list means the user has no
// collections; any other message, or a body that matches neither shape, is a
// protocol error.
package wallhaven
