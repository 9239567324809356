package api

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"
)

func TestEncodeMultipartLayout(t *testing.T) {
	params := NewParams().
		Set("lat", 52.5).
		Set("media_file", NewFileValue("photo.jpg", []byte{0x00, 0xff, '\r', '\n', 0x7f}))

	body, err := encodeMultipart(params, "testboundary")
	if err != nil {
		t.Fatalf("encodeMultipart() error = %v", err)
	}

	want := "--testboundary\r\n" +
		"Content-Disposition: form-data; name=\"lat\"\r\n" +
		"\r\n" +
		"52.5\r\n" +
		"--testboundary\r\n" +
		"Content-Disposition: form-data; name=\"media_file\"; filename=\"photo.jpg\"\r\n" +
		"\r\n" +
		"\x00\xff\r\n\x7f\r\n" +
		"--testboundary--\r\n"
	if string(body.Data) != want {
		t.Errorf("encoded body mismatch\ngot:  %q\nwant: %q", body.Data, want)
	}
	if body.ContentType() != "multipart/form-data;boundary=testboundary" {
		t.Errorf("ContentType() = %q", body.ContentType())
	}
}

func TestEncodeMultipartBlockCount(t *testing.T) {
	for n := 1; n <= 4; n++ {
		params := NewParams()
		for i := 0; i < n; i++ {
			params.Set(string(rune('a'+i)), i)
		}
		body, err := encodeMultipart(params, "countboundary")
		if err != nil {
			t.Fatalf("encodeMultipart() error = %v", err)
		}
		data := string(body.Data)
		if got := strings.Count(data, "--countboundary\r\n"); got != n {
			t.Errorf("n=%d: opening delimiters = %d", n, got)
		}
		if !strings.HasSuffix(data, "--countboundary--\r\n") {
			t.Errorf("n=%d: body does not end with closing delimiter: %q", n, data)
		}
		if got := strings.Count(data, "--countboundary--"); got != 1 {
			t.Errorf("n=%d: closing delimiters = %d", n, got)
		}
	}
}

func TestEncodeMultipartRoundTrip(t *testing.T) {
	photo := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 1024)
	params := NewParams().
		Set("lat", -33.8688).
		Set("lng", 151.2093).
		Set("media_file", NewFileValue("harbour.jpg", photo)).
		Set("is_video", false)

	body, err := EncodeMultipart(params)
	if err != nil {
		t.Fatalf("EncodeMultipart() error = %v", err)
	}

	_, mediaParams, err := mime.ParseMediaType(body.ContentType())
	if err != nil {
		t.Fatalf("ParseMediaType() error = %v", err)
	}
	reader := multipart.NewReader(bytes.NewReader(body.Data), mediaParams["boundary"])

	wantNames := []string{"lat", "lng", "media_file", "is_video"}
	wantValues := []string{"-33.8688", "151.2093", string(photo), "false"}
	for i := range wantNames {
		part, err := reader.NextPart()
		if err != nil {
			t.Fatalf("NextPart() #%d error = %v", i, err)
		}
		if part.FormName() != wantNames[i] {
			t.Errorf("part #%d name = %q, want %q", i, part.FormName(), wantNames[i])
		}
		if part.Header.Get("Content-Type") != "" {
			t.Errorf("part #%d has unexpected Content-Type %q", i, part.Header.Get("Content-Type"))
		}
		data, err := io.ReadAll(part)
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		if string(data) != wantValues[i] {
			t.Errorf("part #%d content mismatch (len %d, want %d)", i, len(data), len(wantValues[i]))
		}
		if wantNames[i] == "media_file" && part.FileName() != "harbour.jpg" {
			t.Errorf("file name = %q", part.FileName())
		}
	}
	if _, err := reader.NextPart(); err != io.EOF {
		t.Errorf("expected io.EOF after last part, got %v", err)
	}
}

func TestEncodeMultipartEmpty(t *testing.T) {
	body, err := encodeMultipart(NewParams(), "emptyboundary")
	if err != nil {
		t.Fatalf("encodeMultipart() error = %v", err)
	}
	if string(body.Data) != "\r\n--emptyboundary--\r\n" {
		t.Errorf("empty body = %q", body.Data)
	}
}

func TestEncodeMultipartRejectsBadNames(t *testing.T) {
	tests := []struct {
		name   string
		params *Params
		kind   string
	}{
		{"empty name", NewParams().Set("", "x"), "name"},
		{"quote in name", NewParams().Set(`a"b`, "x"), "name"},
		{"newline in name", NewParams().Set("a\r\nX-Injected: 1", "x"), "name"},
		{"backslash in name", NewParams().Set(`a\b`, "x"), "name"},
		{"quote in file name", NewParams().Set("f", NewFileValue(`evil".jpg`, []byte("x"))), "filename"},
		{"empty file name", NewParams().Set("f", NewFileValue("", []byte("x"))), "filename"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeMultipart(tt.params)
			var nameErr *InvalidFieldNameError
			if !errors.As(err, &nameErr) {
				t.Fatalf("expected InvalidFieldNameError, got %v", err)
			}
			if nameErr.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", nameErr.Kind, tt.kind)
			}
		})
	}
}

func TestNewBoundaryIsFreshPerRequest(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		b := newBoundary()
		if !strings.HasPrefix(b, boundaryPrefix) {
			t.Fatalf("boundary %q lacks prefix", b)
		}
		if len(b) > 70 {
			t.Fatalf("boundary %q longer than 70 characters", b)
		}
		if seen[b] {
			t.Fatalf("boundary %q reused", b)
		}
		seen[b] = true
	}
}

func TestFileValueCopiesData(t *testing.T) {
	data := []byte("abc")
	fv := NewFileValue("a.bin", data)
	data[0] = 'z'
	if string(fv.Bytes()) != "abc" {
		t.Errorf("FileValue shares caller buffer: %q", fv.Bytes())
	}
}
