package api

import "context"

// FlagRequest builds the call that flags a post. An empty reason is omitted.
func FlagRequest(postID int, reason string) (*Request, error) {
	params := NewParams().Set("post", postID)
	if reason != "" {
		params.Set("reason", reason)
	}
	return NewRequest(MethodPost, ResourcePath(ResourceFlags), params)
}

// Create flags a post for moderation. An empty reason is allowed.
func (s FlagsService) Create(ctx context.Context, postID int, reason string) (*Flag, error) {
	req, err := FlagRequest(postID, reason)
	if err != nil {
		return nil, err
	}
	var result Flag
	if _, err := sendJSON(ctx, s, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
