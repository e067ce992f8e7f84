package middleware

import (
	"net/http"

	"github.com/mssola/useragent"

	"covergate/pkg/requestcontext"
)

// Device parses the User-Agent into a short "Browser on OS" description and
// injects it into the context. The audit trail attributes logins and other
// sensitive actions to it.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("User-Agent")
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		ua := useragent.New(raw)
		name, _ := ua.Browser()
		device := name
		if os := ua.OS(); os != "" {
			device = name + " on " + os
		}

		ctx := requestcontext.WithDevice(r.Context(), device)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
