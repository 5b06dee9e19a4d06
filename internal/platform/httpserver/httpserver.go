// Package httpserver owns the connection-level server configuration.
// Per-request deadlines are applied by the router's timeout middleware, so
// only header-read and idle limits live here.
package httpserver

import (
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
)

// New wires the router into a server with the project's connection limits.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}
