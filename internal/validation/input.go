package validation

import (
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"unicode/utf8"
)

// Input length limits
const (
	MaxUsernameLength = 150
	MinPasswordLength = 8
	MaxEmailLength    = 320 // RFC 5321: 64 chars (local) + 1 (@) + 255 (domain) = 320
	MaxCommentLength  = 2000
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// ValidateUsername checks the account name rules of the server:
// letters, digits and @/./+/-/_ only.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return fmt.Errorf("username exceeds maximum length of %d characters", MaxUsernameLength)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username %q may only contain letters, digits and @/./+/-/_", username)
	}
	return nil
}

// ValidatePassword enforces a minimum length.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateEmail checks length and address syntax. Empty is allowed.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return fmt.Errorf("email exceeds maximum length of %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address %q", email)
	}
	return nil
}

// ValidateLatLng checks that a coordinate pair is on the globe.
func ValidateLatLng(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", lng)
	}
	return nil
}

// ValidateComment checks comment text length.
func ValidateComment(text string) error {
	if text == "" {
		return fmt.Errorf("comment text is required")
	}
	if n := utf8.RuneCountInString(text); n > MaxCommentLength {
		return fmt.Errorf("comment exceeds maximum length of %d characters (got %d)", MaxCommentLength, n)
	}
	return nil
}
