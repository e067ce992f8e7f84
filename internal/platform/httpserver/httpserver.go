package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. The write timeout sits above the 60s handler
// timeout so slow requests are cut off by the middleware with a proper error
// body, not mid-response by the server; the read timeout leaves room for
// multipart claim uploads on slow links.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      75 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}
}
