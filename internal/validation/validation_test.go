package validation

import (
	"math"
	"strings"
	"testing"
)

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{"https host", "https://geo.example.com", false},
		{"http localhost with port", "http://localhost:8000", false},
		{"with path", "https://example.com/geopost", false},
		{"empty", "", true},
		{"no scheme", "geo.example.com", true},
		{"ftp scheme", "ftp://geo.example.com", true},
		{"missing host", "https://", true},
		{"credentials", "https://alice:pw@geo.example.com", true},
		{"query", "https://geo.example.com/?a=1", true},
		{"fragment", "https://geo.example.com/#x", true},
		{"too long", "https://example.com/" + strings.Repeat("a", MaxURLLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBaseURL(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateBaseURL(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
			}
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	if got := NormalizeBaseURL(" https://geo.example.com// "); got != "https://geo.example.com" {
		t.Errorf("NormalizeBaseURL() = %q", got)
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		input     string
		wantError bool
	}{
		{"alice", false},
		{"alice.b+geo@x", false},
		{"", true},
		{"has space", true},
		{"quote\"", true},
		{strings.Repeat("a", MaxUsernameLength), false},
		{strings.Repeat("a", MaxUsernameLength+1), true},
	}
	for _, tt := range tests {
		if err := ValidateUsername(tt.input); (err != nil) != tt.wantError {
			t.Errorf("ValidateUsername(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if ValidatePassword("short") == nil {
		t.Error("expected error for short password")
	}
	if err := ValidatePassword("long enough"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		input     string
		wantError bool
	}{
		{"", false},
		{"bob@example.com", false},
		{"not-an-email", true},
		{"Bob <bob@example.com>", true},
		{strings.Repeat("a", MaxEmailLength) + "@x.com", true},
	}
	for _, tt := range tests {
		if err := ValidateEmail(tt.input); (err != nil) != tt.wantError {
			t.Errorf("ValidateEmail(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
		}
	}
}

func TestValidateLatLng(t *testing.T) {
	tests := []struct {
		lat, lng  float64
		wantError bool
	}{
		{0, 0, false},
		{90, 180, false},
		{-90, -180, false},
		{90.0001, 0, true},
		{0, -180.5, true},
		{math.NaN(), 0, true},
	}
	for _, tt := range tests {
		if err := ValidateLatLng(tt.lat, tt.lng); (err != nil) != tt.wantError {
			t.Errorf("ValidateLatLng(%v, %v) error = %v, wantError %v", tt.lat, tt.lng, err, tt.wantError)
		}
	}
}

func TestValidateComment(t *testing.T) {
	if ValidateComment("") == nil {
		t.Error("expected error for empty comment")
	}
	if ValidateComment(strings.Repeat("é", MaxCommentLength)) != nil {
		t.Error("comment at max length should be valid")
	}
	if ValidateComment(strings.Repeat("é", MaxCommentLength+1)) == nil {
		t.Error("expected error for long comment")
	}
}
