package stream

import (
	"strings"

	"github.com/loomlabs/loom/pkg/logger"
)

const (
	dataPrefix      = "data: "
	recordSeparator = "\n\n"
)

// DecodeErrorHandler observes records that could not be parsed. The
// stream continues after a decode error, one bad record must not abort
// the whole conversation.
type DecodeErrorHandler func(err error, record string)

// Decoder converts raw text fragments into complete Chunks. Fragments
// do not need to align with record boundaries: input is buffered and
// split on the blank-line record separator, and only complete records
// are emitted.
type Decoder struct {
	buf     strings.Builder
	onError DecodeErrorHandler
}

// NewDecoder creates a Decoder that logs decode errors
func NewDecoder() *Decoder {
	return &Decoder{
		onError: func(err error, record string) {
			logger.Warn("Dropping malformed stream record: %v (%q)", err, record)
		},
	}
}

// NewDecoderWithErrorHandler creates a Decoder with a custom observer
// for malformed records
func NewDecoderWithErrorHandler(handler DecodeErrorHandler) *Decoder {
	d := NewDecoder()
	if handler != nil {
		d.onError = handler
	}
	return d
}

// Feed appends a raw fragment to the internal buffer and returns all
// chunks whose records completed with this fragment. The trailing
// partial record stays buffered for the next call.
func (d *Decoder) Feed(fragment string) []Chunk {
	d.buf.WriteString(fragment)

	buffered := d.buf.String()
	parts := strings.Split(buffered, recordSeparator)
	if len(parts) == 1 {
		return nil
	}

	d.buf.Reset()
	d.buf.WriteString(parts[len(parts)-1])

	var chunks []Chunk
	for _, record := range parts[:len(parts)-1] {
		if chunk, ok := d.decode(record); ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// Buffered returns the partial record still waiting for more input.
// A stream that ends with a non-empty remainder was truncated mid
// record; the remainder is simply dropped.
func (d *Decoder) Buffered() string {
	return d.buf.String()
}

// decode parses one complete record. Records without a data: line are
// ignored; the server's error path prepends an "event: error" line, so
// the payload line is searched for rather than assumed to be first.
func (d *Decoder) decode(record string) (Chunk, bool) {
	payload := ""
	for _, line := range strings.Split(record, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, dataPrefix) {
			payload = strings.TrimPrefix(line, dataPrefix)
			break
		}
	}
	if payload == "" {
		return Chunk{}, false
	}

	chunk, err := decodeRecord([]byte(payload))
	if err != nil {
		d.onError(err, payload)
		return Chunk{}, false
	}
	return chunk, true
}
