package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Shape selects how a response body is decoded.
type Shape int

const (
	// ShapeJSON decodes the body as a JSON object or array.
	ShapeJSON Shape = iota
	// ShapeBinary keeps the body as raw media bytes.
	ShapeBinary
)

func (s Shape) String() string {
	switch s {
	case ShapeJSON:
		return "json"
	case ShapeBinary:
		return "binary"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// MediaHook post-processes binary bodies, e.g. to fix camera rotation.
// A failing hook leaves the original bytes in place.
type MediaHook func(media []byte) ([]byte, error)

// Response is a completed exchange. It is not modified after decoding.
type Response struct {
	StatusCode    int
	StatusMessage string
	Header        http.Header
	Shape         Shape

	raw    []byte
	object map[string]any
	array  []any
	media  []byte
}

// IsErrorStatus is the single success/error rule for every response.
func IsErrorStatus(code int) bool {
	return code < 200 || code >= 300
}

// IsError reports whether the status code is outside 200-299.
func (r *Response) IsError() bool {
	return IsErrorStatus(r.StatusCode)
}

// DecodeResponse interprets a raw transport result according to shape.
// Unparseable JSON is treated as an absent body, never as a failure.
func DecodeResponse(raw *RawResult, shape Shape, hook MediaHook) *Response {
	resp := &Response{
		StatusCode:    raw.StatusCode,
		StatusMessage: raw.StatusMessage,
		Header:        raw.Header,
		Shape:         shape,
		raw:           raw.Body,
	}

	switch shape {
	case ShapeBinary:
		media := raw.Body
		if hook != nil && len(media) > 0 && !resp.IsError() {
			processed, err := hook(media)
			if err != nil {
				slog.Warn("media hook failed, keeping original bytes", "error", err)
			} else {
				media = processed
			}
		}
		resp.media = media
	default:
		resp.object, resp.array = decodeJSONBody(raw.Body)
	}
	return resp
}

func decodeJSONBody(body []byte) (map[string]any, []any) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var object map[string]any
	if err := json.Unmarshal(body, &object); err == nil && object != nil {
		return object, nil
	}
	var array []any
	if err := json.Unmarshal(body, &array); err == nil && array != nil {
		return nil, array
	}
	return nil, nil
}

// Object returns the decoded JSON object, if the body was one.
func (r *Response) Object() (map[string]any, bool) {
	return r.object, r.object != nil
}

// Array returns the decoded JSON array, if the body was one.
func (r *Response) Array() ([]any, bool) {
	return r.array, r.array != nil
}

// HasBody reports whether a JSON object or array was decoded.
func (r *Response) HasBody() bool {
	return r.object != nil || r.array != nil
}

// Media returns the binary payload of a ShapeBinary response.
func (r *Response) Media() []byte {
	return r.media
}

// Raw returns the body exactly as read from the wire.
func (r *Response) Raw() []byte {
	return r.raw
}

// ContentType returns the declared content type, sniffing media when absent.
func (r *Response) ContentType() string {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	if r.Shape == ShapeBinary && len(r.media) > 0 {
		return http.DetectContentType(r.media)
	}
	return ""
}

// RequestID returns the server-assigned request id, if any.
func (r *Response) RequestID() string {
	return requestIDFromHeader(r.Header)
}

// Value returns the decoded body: an object, an array, media bytes or nil.
func (r *Response) Value() any {
	switch {
	case r.Shape == ShapeBinary:
		return r.media
	case r.object != nil:
		return r.object
	case r.array != nil:
		return r.array
	default:
		return nil
	}
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if r.Shape != ShapeJSON {
		return &DecodeError{Err: fmt.Errorf("%s response has no JSON body", r.Shape)}
	}
	if !r.HasBody() {
		return &DecodeError{Err: errEmptyBody}
	}
	if err := json.Unmarshal(r.raw, v); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// ErrorDetail returns the "detail" string of a JSON object body.
// It never fails: any other body yields ("", false).
func (r *Response) ErrorDetail() (string, bool) {
	if r == nil || r.object == nil {
		return "", false
	}
	detail := gjson.GetBytes(r.raw, "detail")
	if detail.Type != gjson.String {
		return "", false
	}
	return detail.String(), true
}

// ErrorMessage is the best human-readable explanation of a failed response:
// the detail field, then per-field validation errors, then the status message.
func (r *Response) ErrorMessage() string {
	if detail, ok := r.ErrorDetail(); ok {
		return detail
	}
	if fieldErrors := formatValidationErrors(r.object); fieldErrors != "" {
		return fieldErrors
	}
	if r.StatusMessage != "" {
		return r.StatusMessage
	}
	return http.StatusText(r.StatusCode)
}

// formatValidationErrors formats per-field errors such as
// {"username": ["already taken"]} or {"email": "is invalid"}.
func formatValidationErrors(object map[string]any) string {
	if len(object) == 0 {
		return ""
	}

	var lines []string
	for field, value := range object {
		switch v := value.(type) {
		case string:
			lines = append(lines, fmt.Sprintf("%s: %s", field, v))
		case []any:
			for _, msg := range v {
				if s, ok := msg.(string); ok {
					lines = append(lines, fmt.Sprintf("%s: %s", field, s))
				}
			}
		}
	}
	if len(lines) == 0 {
		return ""
	}

	// Sorted for stable output.
	sort.Strings(lines)
	return strings.Join(lines, "; ")
}

func requestIDFromHeader(header http.Header) string {
	if header == nil {
		return ""
	}
	return header.Get("X-Request-Id")
}
