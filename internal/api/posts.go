package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ListPostsOptions narrows the post listing. A nil Near lists everything.
type ListPostsOptions struct {
	Near  *LatLng
	Limit int
}

// LatLng is a device location.
type LatLng struct {
	Lat float64
	Lng float64
}

// List retrieves posts, optionally around a location.
func (s PostsService) List(ctx context.Context, opts ListPostsOptions) ([]Post, error) {
	return listPosts(ctx, s, ResourcePath(ResourcePosts), opts)
}

func listPosts(ctx context.Context, r Requester, route string, opts ListPostsOptions) ([]Post, error) {
	params := NewParams()
	if opts.Near != nil {
		params.Set("lat", opts.Near.Lat).Set("lng", opts.Near.Lng)
	}
	if opts.Limit > 0 {
		params.Set("limit", opts.Limit)
	}
	req, err := NewRequest(MethodGet, route, params)
	if err != nil {
		return nil, err
	}
	return sendList[Post](ctx, r, req)
}

// Get retrieves a single post by ID.
func (s PostsService) Get(ctx context.Context, id int) (*Post, error) {
	return getPost(ctx, s, id)
}

func getPost(ctx context.Context, r Requester, id int) (*Post, error) {
	req, err := NewRequest(MethodGet, ResourcePath(ResourcePosts, id), nil)
	if err != nil {
		return nil, err
	}
	var result Post
	if _, err := sendJSON(ctx, r, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateRequest builds the multipart upload for a new post.
func CreateRequest(p NewPost) (*Request, error) {
	if p.Media.Len() == 0 {
		return nil, fmt.Errorf("media is required")
	}
	if p.Media.Len() > MaxMediaSize {
		return nil, fmt.Errorf("media is %d bytes, limit is %d", p.Media.Len(), MaxMediaSize)
	}
	params := NewParams().
		Set("lat", p.Lat).
		Set("lng", p.Lng).
		Set("media_file", p.Media).
		Set("is_video", p.IsVideo)
	return NewRequest(MethodPost, ResourcePath(ResourcePosts), params)
}

// Create uploads a post. The reply must carry the new id and its client
// secret; the secret is handed to the configured SecretSaver.
func (s PostsService) Create(ctx context.Context, p NewPost) (*Post, error) {
	post, err := createPost(ctx, s, p)
	if err != nil {
		return nil, err
	}
	if s.secretSaver != nil {
		if err := s.secretSaver.SaveClientSecret(ctx, int(post.ID), post.ClientSecret); err != nil {
			return post, fmt.Errorf("post %d created but its client secret was not saved: %w", post.ID, err)
		}
	} else {
		slog.Warn("no secret store configured; post cannot be deleted later", "post_id", int(post.ID))
	}
	return post, nil
}

func createPost(ctx context.Context, r Requester, p NewPost) (*Post, error) {
	req, err := CreateRequest(p)
	if err != nil {
		return nil, err
	}
	var result Post
	if _, err := sendJSON(ctx, r, req, &result); err != nil {
		return nil, err
	}
	if result.ID == 0 {
		return nil, missingField("id")
	}
	if result.ClientSecret == "" {
		return nil, missingField("client_secret")
	}
	return &result, nil
}

// DeleteRequest builds the delete call for a post, looking its client
// secret up first. It fails with ErrNoClientSecret when none is stored.
func (s PostsService) DeleteRequest(ctx context.Context, id int) (*Request, error) {
	if s.secrets == nil {
		return nil, fmt.Errorf("post %d: %w", id, ErrNoClientSecret)
	}
	secret, err := s.secrets.ClientSecret(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("post %d: %w", id, err)
	}
	if secret == "" {
		return nil, fmt.Errorf("post %d: %w", id, ErrNoClientSecret)
	}
	return deleteRequest(id, secret)
}

func deleteRequest(id int, secret string) (*Request, error) {
	req, err := NewRequest(MethodDelete, ResourcePath(ResourcePosts, id), nil)
	if err != nil {
		return nil, err
	}
	return req.WithClientSecret(secret), nil
}

// Delete removes a post owned by this device.
func (s PostsService) Delete(ctx context.Context, id int) error {
	req, err := s.DeleteRequest(ctx, id)
	if err != nil {
		return err
	}
	_, err = sendJSON(ctx, s, req, nil)
	return err
}

// Media downloads the photo of a post as raw bytes.
func (s PostsService) Media(ctx context.Context, post *Post) (*Response, error) {
	return fetchMedia(ctx, s, post)
}

func fetchMedia(ctx context.Context, r Requester, post *Post) (*Response, error) {
	if post == nil || strings.TrimSpace(post.MediaFile) == "" {
		return nil, missingField("media_file")
	}
	req, err := NewRequest(MethodGet, post.MediaFile, nil)
	if err != nil {
		return nil, err
	}
	req.WithShape(ShapeBinary)
	return sendJSON(ctx, r, req, nil)
}

// ListComments retrieves the comments on a post.
func (s PostsService) ListComments(ctx context.Context, id int) ([]Comment, error) {
	req, err := NewRequest(MethodGet, ResourcePath(ResourcePosts, id, ResourceComments), nil)
	if err != nil {
		return nil, err
	}
	return sendList[Comment](ctx, s, req)
}
