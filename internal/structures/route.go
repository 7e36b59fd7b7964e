package structures

import "net/http"

type Route struct {
	Url     string
	Handler http.Handler
	// Streaming routes bypass response compression.
	Streaming bool
}
