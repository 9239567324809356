package urlparse

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantBase  string
		wantRes   string
		wantID    int
		wantHasID bool
	}{
		{
			name:      "post link",
			url:       "https://geo.example.com/api/posts/123/",
			wantBase:  "https://geo.example.com",
			wantRes:   "posts",
			wantID:    123,
			wantHasID: true,
		},
		{
			name:      "post comments link",
			url:       "https://geo.example.com/api/posts/42/comments/",
			wantBase:  "https://geo.example.com",
			wantRes:   "posts",
			wantID:    42,
			wantHasID: true,
		},
		{
			name:     "collection link",
			url:      "http://localhost:8000/api/comments",
			wantBase: "http://localhost:8000",
			wantRes:  "comments",
		},
		{
			name:      "query string ignored",
			url:       "https://geo.example.com/api/users/9/?format=json",
			wantBase:  "https://geo.example.com",
			wantRes:   "users",
			wantID:    9,
			wantHasID: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.url)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got.BaseURL != tt.wantBase {
				t.Errorf("BaseURL = %q, want %q", got.BaseURL, tt.wantBase)
			}
			if got.Resource != tt.wantRes {
				t.Errorf("Resource = %q, want %q", got.Resource, tt.wantRes)
			}
			if got.ID != tt.wantID {
				t.Errorf("ID = %d, want %d", got.ID, tt.wantID)
			}
			if got.HasID() != tt.wantHasID {
				t.Errorf("HasID() = %v, want %v", got.HasID(), tt.wantHasID)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{"empty", "  ", "cannot be empty"},
		{"no scheme", "geo.example.com/api/posts/1/", "scheme"},
		{"ftp", "ftp://geo.example.com/api/posts/1/", "scheme"},
		{"wrong path", "https://geo.example.com/posts/1/", "expected /api/"},
		{"unknown resource", "https://geo.example.com/api/widgets/1/", "unsupported resource"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.url)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.url)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestPostID(t *testing.T) {
	id, err := PostID("https://geo.example.com/api/posts/7/")
	if err != nil {
		t.Fatalf("PostID() error = %v", err)
	}
	if id != 7 {
		t.Errorf("PostID() = %d, want 7", id)
	}

	if _, err := PostID("https://geo.example.com/api/users/7/"); err == nil {
		t.Error("expected error for a users link")
	}
	if _, err := PostID("https://geo.example.com/api/posts/"); err == nil {
		t.Error("expected error for the posts collection")
	}
}

func TestIsLink(t *testing.T) {
	if !IsLink("HTTPS://geo.example.com/api/posts/1/") {
		t.Error("expected https link to be detected")
	}
	if IsLink("17") {
		t.Error("bare id detected as link")
	}
}
