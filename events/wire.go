package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// RecordPrefix is the literal prefix of every wire record.
const RecordPrefix = "data: "

// WireWriter encodes events as newline-delimited text records over any
// io.Writer: the literal prefix followed by the JSON-encoded event. The
// stream is terminated by closing the underlying transport, not by an
// in-band marker.
type WireWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWireWriter wraps w as a wire-format event writer.
func NewWireWriter(w io.Writer) *WireWriter {
	return &WireWriter{w: w}
}

// Write encodes one event as a wire record.
func (w *WireWriter) Write(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintf(w.w, "%s%s\n\n", RecordPrefix, data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Sink returns a channel sink that forwards every event to the writer.
// Write failures are logged and otherwise ignored: a broken consumer must
// not abort the producing run.
func (w *WireWriter) Sink(logger *zap.Logger) Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ev Event) {
		if err := w.Write(ev); err != nil {
			logger.Warn("wire write failed",
				zap.String("type", string(ev.Type)),
				zap.Error(err),
			)
		}
	}
}

// WireReader decodes a wire-format event stream. Malformed records are
// counted and skipped rather than aborting the whole stream.
type WireReader struct {
	scanner   *bufio.Scanner
	logger    *zap.Logger
	malformed int
}

// NewWireReader wraps r as a wire-format event reader.
func NewWireReader(r io.Reader, logger *zap.Logger) *WireReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WireReader{
		scanner: bufio.NewScanner(r),
		logger:  logger.With(zap.String("component", "wire_reader")),
	}
}

// Next returns the next well-formed event, or io.EOF when the stream ends.
func (r *WireReader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if line == "" {
			continue
		}

		payload, ok := strings.CutPrefix(line, RecordPrefix)
		if !ok {
			r.malformed++
			r.logger.Debug("skipping record without prefix", zap.String("line", line))
			continue
		}

		var ev Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			r.malformed++
			r.logger.Debug("skipping malformed record", zap.Error(err))
			continue
		}
		return &ev, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ReadAll drains the stream and returns every well-formed event.
func (r *WireReader) ReadAll() ([]Event, error) {
	var out []Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, *ev)
	}
}

// Malformed returns how many records were skipped as unparseable.
func (r *WireReader) Malformed() int {
	return r.malformed
}
