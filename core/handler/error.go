package handler

import (
	"fmt"
	"html"

	"github.com/searchktools/spidey/core/http"
)

// ServeError writes an HTML error page for status and returns status.
// The page echoes the request-target, or "/" when none was parsed.
func ServeError(r *http.Request, status int) int {
	text := http.StatusString(status)
	uri := r.URI
	if uri == "" {
		uri = "/"
	}

	w := r.Writer()
	if err := http.WriteHead(w, status, http.HeaderContentType, "text/html"); err == nil {
		fmt.Fprintf(w, "<html><head><title>%s</title></head><body>\n", text)
		fmt.Fprintf(w, "<h1>%s</h1>\n", text)
		fmt.Fprintf(w, "<p>The requested URL %s resulted in an error.</p>\n", html.EscapeString(uri))
		fmt.Fprintf(w, "</body></html>\n")
	}
	if err := r.Flush(); err != nil {
		r.Logger.Debug().Err(err).Int("status", status).Msg("error response not delivered")
	}
	return status
}

// abort ends a response that failed midway. An error page replaces it while
// nothing has reached the client; after that the status is only logged.
func abort(r *http.Request, status int, err error) int {
	if r.DiscardUnsent() {
		return ServeError(r, status)
	}
	r.Logger.Warn().Err(err).Int("status", status).Int64("written", r.Written()).Msg("response aborted")
	return status
}
