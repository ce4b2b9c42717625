package transport

import (
	"strings"

	"github.com/munnerz/goautoneg"
)

const (
	mediaTypeJSON        = "application/json"
	mediaTypeEventStream = "text/event-stream"
)

// MatchesMediaType checks if a media range from an Accept header matches a media type.
// Supports RFC 9110 wildcards: *, */* and type/*
func MatchesMediaType(accepted, mediaType string) bool {
	if accepted == "*" || accepted == "*/*" {
		return true
	}

	if strings.HasSuffix(accepted, "/*") {
		acceptedType := strings.TrimSuffix(accepted, "/*")
		mainType, _, _ := strings.Cut(mediaType, "/")
		return strings.EqualFold(acceptedType, mainType)
	}

	return strings.EqualFold(accepted, mediaType)
}

// ParseAccept returns the acceptable media ranges of an Accept header, most preferred first.
// Ranges with q=0 are not acceptable and are left out.
func ParseAccept(header string) []string {
	var ranges []string
	for _, a := range goautoneg.ParseAccept(header) {
		if a.Q <= 0 {
			continue
		}
		ranges = append(ranges, a.Type+"/"+a.SubType)
	}
	return ranges
}

// clientAcceptsSSE determines if the client accepts Server-Sent Events.
// If forValidSSEMethod is true, also accepts */*, text/* and a missing header (for valid SSE methods).
// Otherwise, only accepts explicit text/event-stream (for error cases)
func clientAcceptsSSE(acceptHeader string, forValidSSEMethod bool) bool {
	if strings.TrimSpace(acceptHeader) == "" {
		return forValidSSEMethod
	}
	for _, accepted := range ParseAccept(acceptHeader) {
		if strings.EqualFold(accepted, mediaTypeEventStream) {
			return true
		}
		if forValidSSEMethod && MatchesMediaType(accepted, mediaTypeEventStream) {
			return true
		}
	}
	return false
}
