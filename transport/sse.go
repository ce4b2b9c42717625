package transport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// maxSSEEventBytes bounds a single event line; task snapshots can be large.
const maxSSEEventBytes = 8 << 20

// SSEEvent represents a Server-Sent Event.
type SSEEvent struct {
	Event string
	Data  string
	ID    string
	Retry int
}

// SSEWriter writes data events and flushes after each one.
type SSEWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewSSEWriter wraps w, which must implement http.Flusher.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteData writes one data event. Each line of data becomes a data field.
func (s *SSEWriter) WriteData(data []byte) error {
	var buf bytes.Buffer
	for line := range bytes.SplitSeq(data, []byte("\n")) {
		fmt.Fprintf(&buf, "data: %s\n", line)
	}
	buf.WriteString("\n")
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteJSON marshals v and writes it as one data event.
func (s *SSEWriter) WriteJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.WriteData(b)
}

// SSEDecoder decodes Server-Sent Events from an io.Reader.
type SSEDecoder struct {
	scanner *bufio.Scanner
}

// NewSSEDecoder creates a new SSE decoder.
func NewSSEDecoder(r io.Reader) *SSEDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSEEventBytes)
	return &SSEDecoder{scanner: scanner}
}

// Decode returns the next event, or io.EOF at the end of the stream.
func (d *SSEDecoder) Decode() (*SSEEvent, error) {
	event := &SSEEvent{}
	var data []string
	hasData := false

	for d.scanner.Scan() {
		line := d.scanner.Text()

		// Empty line indicates end of event
		if line == "" {
			if hasData || event.Event != "" {
				event.Data = strings.Join(data, "\n")
				return event, nil
			}
			continue
		}

		// Comments (lines starting with :) are ignored
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			event.Event = value
		case "data":
			data = append(data, value)
			hasData = true
		case "id":
			event.ID = value
		case "retry":
			if retry, err := strconv.Atoi(value); err == nil {
				event.Retry = retry
			}
		}
	}

	if err := d.scanner.Err(); err != nil {
		return nil, fmt.Errorf("SSE scanner error: %w", err)
	}

	// EOF reached
	if hasData || event.Event != "" {
		event.Data = strings.Join(data, "\n")
		return event, nil
	}
	return nil, io.EOF
}
