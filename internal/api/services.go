package api

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Service accessors group Client methods by resource.
// Each service embeds *Client.

type PostsService struct{ *Client }

type CommentsService struct{ *Client }

type FlagsService struct{ *Client }

type UsersService struct{ *Client }

func (c *Client) Posts() PostsService {
	return PostsService{c}
}

func (c *Client) Comments() CommentsService {
	return CommentsService{c}
}

func (c *Client) Flags() FlagsService {
	return FlagsService{c}
}

func (c *Client) Users() UsersService {
	return UsersService{c}
}

// sendJSON sends req and decodes a successful JSON reply into result.
// A nil result skips decoding.
func sendJSON(ctx context.Context, r Sender, req *Request, result any) (*Response, error) {
	outcome := r.Send(ctx, req)
	if err := outcome.Err(); err != nil {
		return outcome.Response, err
	}
	if result == nil {
		return outcome.Response, nil
	}
	if err := outcome.Response.Decode(result); err != nil {
		return outcome.Response, err
	}
	return outcome.Response, nil
}

// sendList decodes either a bare JSON array or a paginated object whose
// items sit under "results".
func sendList[T any](ctx context.Context, r Sender, req *Request) ([]T, error) {
	resp, err := sendJSON(ctx, r, req, nil)
	if err != nil {
		return nil, err
	}
	var items []T
	switch {
	case resp.array != nil:
		if err := json.Unmarshal(resp.raw, &items); err != nil {
			return nil, &DecodeError{Err: err}
		}
	case resp.object != nil:
		results := gjson.GetBytes(resp.raw, "results")
		if !results.IsArray() {
			return nil, missingField("results")
		}
		if err := json.Unmarshal([]byte(results.Raw), &items); err != nil {
			return nil, &DecodeError{Field: "results", Err: err}
		}
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
