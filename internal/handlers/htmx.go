package handlers

import (
	"net/http"
	"net/url"
)

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// htmxCurrentPath returns the path of the page that issued an htmx request.
func htmxCurrentPath(r *http.Request) (string, bool) {
	if !isHTMX(r) {
		return "", false
	}
	raw := r.Header.Get("HX-Current-URL")
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Path == "" {
		return "/", true
	}
	return u.Path, true
}
