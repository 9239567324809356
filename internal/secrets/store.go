// Package secrets keeps the client secrets that prove this device created a
// post. The server hands a secret out exactly once, on creation, so losing
// it means losing the ability to delete the post.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/geopost/geopost-cli/internal/api"
)

// ErrNotFound is returned when no secret is stored for a post.
var ErrNotFound = errors.New("secret not found")

// Entry is one stored secret.
type Entry struct {
	PostID  int       `json:"post_id"`
	Secret  string    `json:"secret"`
	SavedAt time.Time `json:"saved_at"`
}

// Store persists client secrets per post ID. Implementations are scoped to
// one server so IDs from different servers never collide.
type Store interface {
	Get(ctx context.Context, postID int) (Entry, error)
	Put(ctx context.Context, postID int, secret string) error
	Delete(ctx context.Context, postID int) error
	List(ctx context.Context) ([]Entry, error)
}

// Scope derives the namespace for a server from its base URL.
func Scope(baseURL string) string {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
	return strings.ToLower(u.Host) + strings.TrimRight(u.Path, "/")
}

// Secrets adapts a Store to the api client's lookup and saver hooks.
type Secrets struct {
	Store Store
}

var (
	_ api.SecretLookup = Secrets{}
	_ api.SecretSaver  = Secrets{}
)

// ClientSecret implements api.SecretLookup.
func (s Secrets) ClientSecret(ctx context.Context, postID int) (string, error) {
	entry, err := s.Store.Get(ctx, postID)
	if errors.Is(err, ErrNotFound) {
		return "", api.ErrNoClientSecret
	}
	if err != nil {
		return "", fmt.Errorf("failed to read client secret: %w", err)
	}
	return entry.Secret, nil
}

// SaveClientSecret implements api.SecretSaver.
func (s Secrets) SaveClientSecret(ctx context.Context, postID int, secret string) error {
	return s.Store.Put(ctx, postID, secret)
}

func parsePostID(raw string) (int, bool) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
