package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/geopost/geopost-cli/internal/api"
	"github.com/geopost/geopost-cli/internal/config"
)

// HandleError renders err with a short list of things to try.
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder
	var serverErr *api.ServerError
	var transportErr *api.TransportError
	var decodeErr *api.DecodeError

	switch {
	case errors.Is(err, config.ErrNotConfigured):
		msg.WriteString("No server configured.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: geopost auth login --url https://your.server\n")
		msg.WriteString("  - Or set GEOPOST_BASE_URL / pass --base-url\n")

	case errors.Is(err, api.ErrNoCredentials):
		msg.WriteString("This command needs a username and password.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: geopost auth login --username NAME\n")
		msg.WriteString("  - Or set GEOPOST_USERNAME and GEOPOST_PASSWORD\n")

	case errors.Is(err, api.ErrNoClientSecret):
		fmt.Fprintf(&msg, "Error: %s\n\n", err)
		msg.WriteString("Only the device that created a post can delete it.\n")
		msg.WriteString("  - Check: geopost secrets list\n")
		msg.WriteString("  - Share secrets between machines with --secret-store redis://...\n")

	case errors.As(err, &serverErr):
		writeContext(&msg, err, serverErr)
		fmt.Fprintf(&msg, "Server error (HTTP %d): %s\n\n", serverErr.StatusCode, serverErr.Detail)
		msg.WriteString(suggestionsForStatusCode(serverErr.StatusCode))
		if serverErr.RequestID != "" {
			fmt.Fprintf(&msg, "\nRequest ID: %s\n", serverErr.RequestID)
		}

	case errors.As(err, &transportErr):
		writeContext(&msg, err, transportErr)
		if transportErr.Timeout() {
			msg.WriteString("Request timed out.\n\n")
		} else {
			fmt.Fprintf(&msg, "Could not reach the server: %s\n\n", transportErr.Err)
		}
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check the server URL: geopost auth status\n")
		msg.WriteString("  - Check your network connection\n")
		if transportErr.Timeout() {
			msg.WriteString("  - Raise --connect-timeout / --read-timeout\n")
		}

	case errors.As(err, &decodeErr):
		fmt.Fprintf(&msg, "Unexpected server reply: %s\n\n", decodeErr)
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Use --debug to see the exchange\n")
		msg.WriteString("  - Check that --base-url points at a geopost server\n")

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	return msg.String()
}

// writeContext prints what a wrapper added in front of cause, e.g.
// "2 of 3 posts not deleted".
func writeContext(msg *strings.Builder, err, cause error) {
	prefix, ok := strings.CutSuffix(err.Error(), cause.Error())
	prefix = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(prefix), ":"))
	if ok && prefix != "" {
		fmt.Fprintf(msg, "%s\n", prefix)
	}
}

func suggestionsForStatusCode(code int) string {
	var s strings.Builder
	s.WriteString("Suggestions:\n")

	switch {
	case code == 400:
		s.WriteString("  - Check the values you sent\n")
	case code == 401:
		s.WriteString("  - Your username or password was rejected\n")
		s.WriteString("  - Run: geopost auth login\n")
	case code == 403:
		s.WriteString("  - The stored client secret does not match this post\n")
	case code == 404:
		s.WriteString("  - The resource doesn't exist or was deleted\n")
	case code == 429:
		s.WriteString("  - Too many requests; wait and try again\n")
	case code >= 300 && code < 400:
		s.WriteString("  - Redirects are not followed; check --base-url (http vs https, trailing path)\n")
	case code >= 500:
		s.WriteString("  - The server failed; try again later\n")
	default:
		s.WriteString("  - Use --debug for more details\n")
	}
	return s.String()
}
