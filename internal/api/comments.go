package api

import (
	"context"
	"fmt"
	"strings"
)

// CommentRequest builds the call that adds a comment to a post.
func CommentRequest(postID int, text string) (*Request, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("comment text is required")
	}
	params := NewParams().Set("post", postID).Set("text", text)
	return NewRequest(MethodPost, ResourcePath(ResourceComments), params)
}

// Create adds a comment to a post.
func (s CommentsService) Create(ctx context.Context, postID int, text string) (*Comment, error) {
	return createComment(ctx, s, postID, text)
}

func createComment(ctx context.Context, r Requester, postID int, text string) (*Comment, error) {
	req, err := CommentRequest(postID, text)
	if err != nil {
		return nil, err
	}
	var result Comment
	if _, err := sendJSON(ctx, r, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
