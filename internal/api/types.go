package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Upload limits enforced before a post is sent.
const (
	MaxMediaSize = 20 * 1024 * 1024 // 20MB per photo
)

// FlexInt handles JSON numbers that may come as strings or integers
type FlexInt int

func (fi *FlexInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*fi = FlexInt(i)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*fi = 0
			return nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*fi = FlexInt(i)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into FlexInt", data)
}

// FlexFloat handles coordinates that may come as strings or numbers
type FlexFloat float64

func (ff *FlexFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*ff = FlexFloat(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*ff = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*ff = FlexFloat(f)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into FlexFloat", data)
}

// FlexBool accepts true/false as well as "true", "1" and 0/1.
type FlexBool bool

func (fb *FlexBool) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*fb = FlexBool(b)
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*fb = i != 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*fb = false
			return nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		*fb = FlexBool(b)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into FlexBool", data)
}

// Post is a geotagged photo. ClientSecret is only present in the reply to
// the create call.
type Post struct {
	ID           FlexInt   `json:"id"`
	Lat          FlexFloat `json:"lat"`
	Lng          FlexFloat `json:"lng"`
	MediaFile    string    `json:"media_file"`
	IsVideo      FlexBool  `json:"is_video"`
	ClientSecret string    `json:"client_secret,omitempty"`
	Owner        string    `json:"owner,omitempty"`
	Created      string    `json:"created,omitempty"`
}

// CreatedTime parses Created, returning the zero time when absent or invalid.
func (p *Post) CreatedTime() time.Time {
	return parseTimestamp(p.Created)
}

// NewPost is the input to PostsService.Create.
type NewPost struct {
	Lat     float64
	Lng     float64
	Media   FileValue
	IsVideo bool
}

// Comment is a text reply attached to a post.
type Comment struct {
	ID      FlexInt `json:"id"`
	Post    FlexInt `json:"post"`
	Text    string  `json:"text"`
	Author  string  `json:"author,omitempty"`
	Created string  `json:"created,omitempty"`
}

// CreatedTime parses Created, returning the zero time when absent or invalid.
func (c *Comment) CreatedTime() time.Time {
	return parseTimestamp(c.Created)
}

// Flag reports a post for moderation.
type Flag struct {
	ID     FlexInt `json:"id"`
	Post   FlexInt `json:"post"`
	Reason string  `json:"reason"`
}

// User is a registered account.
type User struct {
	ID       FlexInt `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email,omitempty"`
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
