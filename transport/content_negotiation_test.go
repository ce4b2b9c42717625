package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesMediaType(t *testing.T) {
	tests := []struct {
		name      string
		accepted  string
		mediaType string
		expected  bool
	}{
		{"Exact match", "text/event-stream", "text/event-stream", true},
		{"Case insensitive", "Text/Event-Stream", "text/event-stream", true},
		{"No match", "application/json", "text/event-stream", false},
		{"Wildcard * matches any", "*", "text/event-stream", true},
		{"Wildcard */* matches any", "*/*", "application/json", true},
		{"Type wildcard text/* matches text/event-stream", "text/*", "text/event-stream", true},
		{"Type wildcard text/* does not match application/json", "text/*", "application/json", false},
		{"Type wildcard application/* matches application/json", "application/*", "application/json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MatchesMediaType(tt.accepted, tt.mediaType)
			if result != tt.expected {
				t.Errorf("MatchesMediaType(%q, %q) = %v, want %v", tt.accepted, tt.mediaType, result, tt.expected)
			}
		})
	}
}

func TestParseAccept(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected []string
	}{
		{"Empty header", "", nil},
		{"Single range", "text/event-stream", []string{"text/event-stream"}},
		{"Multiple ranges", "application/json, text/event-stream", []string{"application/json", "text/event-stream"}},
		{"Bare wildcard", "*", []string{"*/*"}},
		{"Parameters are dropped", "*/*;q=0.1, text/event-stream;q=0.9", []string{"text/event-stream", "*/*"}},
		{"q=0 is not acceptable", "text/event-stream;q=0, application/json", []string{"application/json"}},
		{"Malformed q is not acceptable", "text/event-stream;q=high", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseAccept(tt.header)
			if len(tt.expected) == 0 {
				assert.Empty(t, result)
				return
			}
			assert.ElementsMatch(t, tt.expected, result)
		})
	}

	t.Run("Most preferred first", func(t *testing.T) {
		result := ParseAccept("*/*;q=0.1, text/event-stream;q=0.9")
		assert.Equal(t, []string{"text/event-stream", "*/*"}, result)
	})
}

func TestClientAcceptsSSE(t *testing.T) {
	tests := []struct {
		name              string
		accept            string
		forValidSSEMethod bool
		expected          bool
	}{
		{"explicit event-stream", "text/event-stream", false, true},
		{"explicit event-stream among others", "application/json, text/event-stream", false, true},
		{"any for error frames", "*/*", false, false},
		{"text wildcard for error frames", "text/*", false, false},
		{"missing header for error frames", "", false, false},
		{"any for stream method", "*/*", true, true},
		{"text wildcard for stream method", "text/*", true, true},
		{"missing header for stream method", "", true, true},
		{"json only for stream method", "application/json", true, false},
		{"event-stream refused", "text/event-stream;q=0, application/json", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clientAcceptsSSE(tt.accept, tt.forValidSSEMethod); got != tt.expected {
				t.Errorf("clientAcceptsSSE(%q, %v) = %v, want %v", tt.accept, tt.forValidSSEMethod, got, tt.expected)
			}
		})
	}
}
