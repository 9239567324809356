// Package urlparse extracts resource references from geopost API links.
package urlparse

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Ref is a resource reference taken from a link such as
// https://geo.example.com/api/posts/7/.
type Ref struct {
	BaseURL  string
	Resource string
	ID       int // 0 when the link names the collection
}

// HasID reports whether the link pointed at a single item.
func (r *Ref) HasID() bool {
	return r.ID > 0
}

var resources = map[string]bool{
	"posts":    true,
	"comments": true,
	"flags":    true,
	"users":    true,
}

// /api/{resource}/{id}? with an optional tail (e.g. /api/posts/7/comments/).
var pathPattern = regexp.MustCompile(`^/api/([a-z]+)(?:/(\d+))?(?:/.*)?$`)

// IsLink reports whether s looks like an http(s) link rather than a bare id.
func IsLink(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Parse extracts the resource and id from a geopost API link.
func Parse(rawURL string) (*Ref, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme %q: expected http or https", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL: missing host")
	}

	m := pathPattern.FindStringSubmatch(parsed.Path)
	if m == nil {
		return nil, fmt.Errorf("invalid geopost URL: expected /api/{resource}[/{id}]/")
	}
	if !resources[m[1]] {
		return nil, fmt.Errorf("unsupported resource %q: expected one of comments, flags, posts, users", m[1])
	}

	ref := &Ref{
		BaseURL:  parsed.Scheme + "://" + parsed.Host,
		Resource: m[1],
	}
	if m[2] != "" {
		ref.ID, err = strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("invalid id: %w", err)
		}
	}
	return ref, nil
}

// PostID returns the post id named by a link to a post (or one of its
// sub-resources).
func PostID(rawURL string) (int, error) {
	ref, err := Parse(rawURL)
	if err != nil {
		return 0, err
	}
	if ref.Resource != "posts" || !ref.HasID() {
		return 0, fmt.Errorf("URL %q does not name a post", rawURL)
	}
	return ref.ID, nil
}
