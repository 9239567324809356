package api

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const boundaryPrefix = "GeoPostBoundary"

// MultipartBody is an encoded multipart/form-data payload.
type MultipartBody struct {
	Boundary string
	Data     []byte
}

// ContentType returns the Content-Type header value announcing the boundary.
func (b *MultipartBody) ContentType() string {
	return "multipart/form-data;boundary=" + b.Boundary
}

// InvalidFieldNameError is returned for names that would break the
// Content-Disposition header. Such names are rejected, never escaped.
type InvalidFieldNameError struct {
	Kind string // "name" or "filename"
	Name string
}

func (e *InvalidFieldNameError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid multipart %s: must not be empty", e.Kind)
	}
	return fmt.Sprintf("invalid multipart %s %q: quotes and control characters are not allowed", e.Kind, e.Name)
}

// newBoundary returns a fresh boundary token. Every request gets its own.
func newBoundary() string {
	return boundaryPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// EncodeMultipart serializes params, in order, into a multipart/form-data body.
func EncodeMultipart(params *Params) (*MultipartBody, error) {
	return encodeMultipart(params, newBoundary())
}

func encodeMultipart(params *Params, boundary string) (*MultipartBody, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.SetBoundary(boundary); err != nil {
		return nil, fmt.Errorf("failed to set multipart boundary: %w", err)
	}

	for _, field := range params.Fields() {
		if err := validatePartName("name", field.Name); err != nil {
			return nil, err
		}

		header := make(textproto.MIMEHeader)
		var content []byte
		if file, ok := field.Value.(FileValue); ok {
			if err := validatePartName("filename", file.FileName); err != nil {
				return nil, err
			}
			header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field.Name, file.FileName))
			content = file.Bytes()
		} else {
			value, err := formatValue(field.Value)
			if err != nil {
				return nil, fmt.Errorf("failed to encode field %s: %w", field.Name, err)
			}
			header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, field.Name))
			content = []byte(value)
		}

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create part %s: %w", field.Name, err)
		}
		if _, err := part.Write(content); err != nil {
			return nil, fmt.Errorf("failed to write part %s: %w", field.Name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &MultipartBody{Boundary: boundary, Data: buf.Bytes()}, nil
}

func validatePartName(kind, name string) error {
	if name == "" {
		return &InvalidFieldNameError{Kind: kind}
	}
	for _, r := range name {
		if r == '"' || r == '\\' || unicode.IsControl(r) {
			return &InvalidFieldNameError{Kind: kind, Name: name}
		}
	}
	return nil
}

// validateParams checks every name and file name ahead of dispatch.
func validateParams(params *Params) error {
	for _, field := range params.Fields() {
		if err := validatePartName("name", field.Name); err != nil {
			return err
		}
		if file, ok := field.Value.(FileValue); ok {
			if err := validatePartName("filename", file.FileName); err != nil {
				return err
			}
		}
	}
	return nil
}
