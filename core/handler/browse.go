package handler

import (
	"fmt"
	"html"
	"net/url"
	"os"
	"strings"

	"github.com/searchktools/spidey/core/http"
)

// ServeBrowse lists the directory at r.Path as HTML links, sorted by name.
// Links join the request path and the entry name with exactly one '/'.
func ServeBrowse(r *http.Request) int {
	entries, err := os.ReadDir(r.Path)
	if err != nil {
		r.Logger.Debug().Err(err).Str("path", r.Path).Msg("cannot list directory")
		return ServeError(r, http.StatusNotFound)
	}

	base := r.RawPath()
	if base == "" {
		base = "/"
	}
	sep := "/"
	if strings.HasSuffix(base, "/") {
		sep = ""
	}
	title := html.EscapeString(base)

	w := r.Writer()
	if err := http.WriteHead(w, http.StatusOK, http.HeaderContentType, "text/html"); err != nil {
		return abort(r, http.StatusInternalServerError, err)
	}

	fmt.Fprintf(w, "<html><head><title>Index of %s</title></head><body>\n", title)
	fmt.Fprintf(w, "<h1>Index of %s</h1>\n<ul>\n", title)
	for _, entry := range entries {
		name := entry.Name()
		href := base + sep + url.PathEscape(name)
		fmt.Fprintf(w, "<li><a href=\"%s\">%s</a></li>\n", html.EscapeString(href), html.EscapeString(name))
	}
	fmt.Fprintf(w, "</ul>\n</body></html>\n")

	if err := r.Flush(); err != nil {
		return abort(r, http.StatusInternalServerError, err)
	}
	return http.StatusOK
}
