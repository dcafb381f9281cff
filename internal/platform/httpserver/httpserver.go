// Package httpserver constructs the server main runs, keeping the timeout
// policy in one place.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server with a bounded header read, the piece net/http leaves
// unbounded by default.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
