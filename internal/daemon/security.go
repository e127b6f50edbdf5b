package daemon

import "bytes"

// httpMethodPrefixes are the request-line openings a browser or HTTP
// client would send. The daemon speaks NDJSON only; a connection that
// opens with one of these is a cross-protocol probe and is dropped
// without a response.
var httpMethodPrefixes = [][]byte{
	[]byte("GET "),
	[]byte("POST "),
	[]byte("PUT "),
	[]byte("DELETE "),
	[]byte("HEAD "),
	[]byte("OPTIONS "),
	[]byte("PATCH "),
	[]byte("CONNECT "),
	[]byte("TRACE "),
}

// looksLikeHTTP reports whether the first chunk read from a
// connection starts with an HTTP method token. The check is
// case-sensitive: HTTP methods are defined uppercase, and JSON
// command lines always start with '{'.
func looksLikeHTTP(chunk []byte) bool {
	for _, prefix := range httpMethodPrefixes {
		if bytes.HasPrefix(chunk, prefix) {
			return true
		}
	}
	return false
}
