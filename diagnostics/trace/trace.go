// Package trace writes diagnostics events as compressed JSON lines, one
// file per writer, for offline replay and plotting.
package trace

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/amp-labs/imperative/diagnostics"
	"github.com/amp-labs/imperative/logger"
)

var ErrUnknownCodec = errors.New("unknown trace codec")

const bufferSize = 128 * 1024

// Record is the on-disk form of one event.
type Record struct {
	RunID     string         `json:"run_id"`
	Machine   string         `json:"machine,omitempty"`
	State     string         `json:"state"`
	Position  int            `json:"position"`
	Statement int            `json:"statement"`
	Label     string         `json:"label,omitempty"`
	ElapsedS  float64        `json:"elapsed_s"`
	At        time.Time      `json:"at"`
	View      map[string]any `json:"view,omitempty"`
	Successor string         `json:"successor,omitempty"`
	Completed bool           `json:"completed,omitempty"`
}

// FromEvent converts an event to its on-disk form.
func FromEvent(ev diagnostics.Event) Record {
	return Record{
		RunID:     ev.RunID,
		Machine:   ev.Machine,
		State:     ev.State,
		Position:  ev.Position,
		Statement: ev.Statement,
		Label:     ev.Label,
		ElapsedS:  ev.Elapsed.Seconds(),
		At:        ev.At,
		View:      ev.View.Values(),
		Successor: ev.Successor,
		Completed: ev.Completed,
	}
}

// Writer is a diagnostics sink appending records to one compressed file.
type Writer struct {
	path  string
	codec Codec

	mu  sync.Mutex
	f   *os.File
	enc io.WriteCloser
	w   *bufio.Writer
	n   int
}

// Create opens dir/prefix-<timestamp>.jsonl<ext> for writing.
func Create(dir, prefix string, codec Codec, now time.Time) (*Writer, error) {
	if codec == "" {
		codec = CodecZstd
	}

	if _, ok := codecs[codec]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codec)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("creating trace dir: %w", err)
	}

	name := fmt.Sprintf("%s-%s.jsonl%s", prefix, now.UTC().Format("20060102-150405"), codec.Ext())
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) //nolint:gosec,mnd
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}

	enc, err := codec.writer(f)
	if err != nil {
		_ = f.Close()

		return nil, err
	}

	return &Writer{
		path:  path,
		codec: codec,
		f:     f,
		enc:   enc,
		w:     bufio.NewWriterSize(enc, bufferSize),
	}, nil
}

// Path returns the file being written.
func (w *Writer) Path() string {
	return w.path
}

// Record implements diagnostics.Sink. Failures are logged.
func (w *Writer) Record(ctx context.Context, ev diagnostics.Event) {
	if err := w.Write(FromEvent(ev)); err != nil {
		logger.Get(ctx).Error("trace write failed", "error", err, "path", w.path)
	}
}

// Write appends one record.
func (w *Writer) Write(rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding trace record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return nil
	}

	if _, err := w.w.Write(b); err != nil {
		return err
	}

	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}

	w.n++

	return nil
}

// Len returns the number of records written.
func (w *Writer) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.n
}

// Close flushes the buffer and compressor and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return nil
	}

	err := errors.Join(w.w.Flush(), w.enc.Close(), w.f.Close())
	w.w, w.enc, w.f = nil, nil, nil

	return err
}

// ReadFile decodes every record of a trace file, picking the codec from
// the file extension.
func ReadFile(path string) ([]Record, error) {
	codec, err := CodecForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	defer f.Close()

	dec, err := codec.reader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Record

	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, bufferSize), bufferSize*8) //nolint:mnd

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return out, fmt.Errorf("decoding trace record %d: %w", len(out)+1, err)
		}

		out = append(out, rec)
	}

	return out, scanner.Err()
}
