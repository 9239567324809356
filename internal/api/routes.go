package api

import (
	"fmt"
	"net/url"
	"strings"
)

// Resource names understood by the server.
const (
	ResourcePosts    = "posts"
	ResourceComments = "comments"
	ResourceFlags    = "flags"
	ResourceUsers    = "users"
	ResourceSignup   = "signup"
)

// KnownResources lists every resource route, in display order.
var KnownResources = []string{ResourcePosts, ResourceComments, ResourceFlags, ResourceUsers, ResourceSignup}

// NormalizeRoute guarantees a leading and a trailing slash on the path part
// of route. Any query string is kept as-is.
func NormalizeRoute(route string) string {
	path, query, hasQuery := strings.Cut(strings.TrimSpace(route), "?")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	if hasQuery {
		return path + "?" + query
	}
	return path
}

// ResourcePath builds /api/<resource>/<segment>/.../ with every segment
// path-escaped, e.g. ResourcePath("posts", 7) == "/api/posts/7/".
func ResourcePath(resource string, segments ...any) string {
	var b strings.Builder
	b.WriteString("/api/")
	b.WriteString(strings.Trim(resource, "/"))
	b.WriteString("/")
	for _, s := range segments {
		b.WriteString(url.PathEscape(fmt.Sprint(s)))
		b.WriteString("/")
	}
	return b.String()
}

func isAbsoluteURL(route string) bool {
	lower := strings.ToLower(route)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
