// Package stream decodes the line-delimited event stream of a turn.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/wagiedev/hitl-agent-client-go/internal/errors"
	"github.com/wagiedev/hitl-agent-client-go/internal/metrics"
	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
)

const (
	// recordPrefix marks a data record. Other lines (comments, blank keep-alives,
	// other SSE fields) are ignored.
	recordPrefix = "data:"

	// initialBufferSize is the scanner's starting buffer.
	initialBufferSize = 64 * 1024

	// DefaultMaxRecordSize bounds a single record line.
	DefaultMaxRecordSize = 4 * 1024 * 1024
)

// Decoder turns a stream of "data: {...}" records into protocol events.
//
// A Decoder is single-use: Events may be ranged over once.
type Decoder struct {
	log           *slog.Logger
	r             io.Reader
	maxRecordSize int

	consumed  atomic.Bool
	malformed atomic.Int64
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMaxRecordSize overrides DefaultMaxRecordSize.
func WithMaxRecordSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxRecordSize = n
		}
	}
}

// NewDecoder creates a decoder reading from r.
//
// Cancellation of a blocked read depends on r: HTTP response bodies are
// unblocked when their request context is cancelled.
func NewDecoder(log *slog.Logger, r io.Reader, opts ...Option) *Decoder {
	d := &Decoder{
		log:           log.With("component", "stream_decoder"),
		r:             r,
		maxRecordSize: DefaultMaxRecordSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Malformed returns how many records were skipped as malformed so far.
func (d *Decoder) Malformed() int {
	return int(d.malformed.Load())
}

// Events returns an iterator over the decoded events of the turn.
//
// Malformed records are logged and skipped. Iteration ends right after the
// first terminal event; if the stream closes before one arrives the iterator
// simply ends and the caller must treat the turn as incomplete. Read failures
// and context cancellation are yielded as errors and end the iteration.
func (d *Decoder) Events(ctx context.Context) iter.Seq2[protocol.Event, error] {
	return func(yield func(protocol.Event, error) bool) {
		if !d.consumed.CompareAndSwap(false, true) {
			yield(nil, errors.ErrStreamConsumed)

			return
		}

		scanner := bufio.NewScanner(d.r)
		scanner.Buffer(make([]byte, 0, initialBufferSize), d.maxRecordSize)

		records := 0

		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				d.log.Debug("Context cancelled during decode", "error", err)
				yield(nil, err)

				return
			}

			payload, ok := cutRecord(scanner.Text())
			if !ok {
				continue
			}

			records++

			event, err := d.decodeRecord(payload)
			if err != nil {
				if stderrors.Is(err, errors.ErrUnknownEventType) {
					continue
				}

				d.malformed.Add(1)
				metrics.MalformedRecords.Inc()
				d.log.Debug("Skipping malformed stream record",
					"error", &errors.RecordDecodeError{Line: payload, Err: err},
					"record_index", records)

				continue
			}

			if !yield(event, nil) {
				return
			}

			if event.IsTerminal() {
				d.log.Debug("Terminal event decoded", "event_type", event.EventType(), "records", records)

				return
			}
		}

		if err := scanner.Err(); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield(nil, ctxErr)

				return
			}

			d.log.Error("Stream read failed", "error", err)
			yield(nil, fmt.Errorf("read stream: %w", err))

			return
		}

		d.log.Debug("Stream closed without terminal event", "records", records)
	}
}

func (d *Decoder) decodeRecord(payload string) (protocol.Event, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	if data == nil {
		return nil, fmt.Errorf("record is not a JSON object")
	}

	return protocol.Parse(d.log, data)
}

// cutRecord extracts the JSON payload of a data line.
func cutRecord(line string) (string, bool) {
	line = strings.TrimSpace(line)

	payload, ok := strings.CutPrefix(line, recordPrefix)
	if !ok {
		return "", false
	}

	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", false
	}

	return payload, true
}
