// Package feed decodes platform events from a JSON-lines stream.
package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// DefaultBuffer is the event channel capacity used when none is configured.
const DefaultBuffer = 64

// maxLineSize bounds one encoded event; content trees of busy screens get large.
const maxLineSize = 4 << 20

// ErrMalformed marks a line that is not a usable event.
var ErrMalformed = errors.New("malformed event")

// record is the wire form of one event.
type record struct {
	Timestamp time.Time   `json:"ts"`
	Root      *model.Node `json:"root"`
	Kind      string      `json:"kind"`
	App       string      `json:"app"`
	Title     string      `json:"title"`
	Body      string      `json:"body"`
}

// Decode parses one JSON line into an event. A missing timestamp is left zero.
func Decode(line []byte) (model.SourceEvent, error) {
	var rec record
	if err := json.Unmarshal(line, &rec); err != nil {
		return model.SourceEvent{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if rec.App == "" {
		return model.SourceEvent{}, fmt.Errorf("%w: missing app", ErrMalformed)
	}

	ev := model.SourceEvent{
		Timestamp: rec.Timestamp,
		SourceApp: rec.App,
	}
	switch model.EventKind(rec.Kind) {
	case model.EventScreen:
		if rec.Root == nil {
			return model.SourceEvent{}, fmt.Errorf("%w: screen event without root", ErrMalformed)
		}
		ev.Kind = model.EventScreen
		ev.Root = rec.Root
	case model.EventNotification:
		ev.Kind = model.EventNotification
		ev.Title = rec.Title
		ev.Body = rec.Body
	default:
		return model.SourceEvent{}, fmt.Errorf("%w: unknown kind %q", ErrMalformed, rec.Kind)
	}
	return ev, nil
}

// Encode renders an event in the wire form, the inverse of Decode.
func Encode(ev model.SourceEvent) ([]byte, error) {
	rec := record{
		Timestamp: ev.Timestamp,
		Kind:      string(ev.Kind),
		App:       ev.SourceApp,
		Title:     ev.Title,
		Body:      ev.Body,
	}
	if node, ok := ev.Root.(*model.Node); ok {
		rec.Root = node
	}
	return json.Marshal(rec)
}

// Options configures a Reader.
type Options struct {
	Now    func() time.Time
	Buffer int
	// Blocking makes the reader wait for a free slot instead of dropping events.
	Blocking bool
}

// Reader pushes decoded events into a bounded channel.
type Reader struct {
	src      io.Reader
	events   chan model.SourceEvent
	now      func() time.Time
	dropped  atomic.Int64
	skipped  atomic.Int64
	blocking bool
}

// NewReader creates a reader over src.
func NewReader(src io.Reader, opts Options) *Reader {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Reader{
		src:      src,
		events:   make(chan model.SourceEvent, opts.Buffer),
		now:      opts.Now,
		blocking: opts.Blocking,
	}
}

// Events returns the channel the reader publishes to. It is closed when Run returns.
func (r *Reader) Events() <-chan model.SourceEvent {
	return r.events
}

// Dropped returns how many events were discarded because the channel was full.
func (r *Reader) Dropped() int64 {
	return r.dropped.Load()
}

// Skipped returns how many lines could not be decoded.
func (r *Reader) Skipped() int64 {
	return r.skipped.Load()
}

// Run reads until EOF, a read error or ctx cancellation. Malformed and oversized lines
// are logged and skipped.
func (r *Reader) Run(ctx context.Context) error {
	defer close(r.events)

	br := bufio.NewReaderSize(r.src, 64*1024)
	var buf []byte

	for line := 1; ; line++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		raw, oversized, readErr := readLine(br, buf)
		buf = raw
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("failed to read event feed: %w", readErr)
		}

		switch {
		case oversized:
			r.skipped.Add(1)
			common.LogWarn("Skipping oversized event", common.Fields{"line": line, "limit": maxLineSize})
		case len(raw) > 0:
			if err := r.handle(ctx, line, raw); err != nil {
				return err
			}
		}

		if readErr != nil {
			return nil
		}
	}
}

func (r *Reader) handle(ctx context.Context, line int, raw []byte) error {
	ev, err := Decode(raw)
	if err != nil {
		r.skipped.Add(1)
		common.LogWarn("Skipping malformed event", common.Fields{"line": line, "error": err.Error()})
		return nil
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.now()
	}
	return r.publish(ctx, ev)
}

// readLine returns the next line without its terminator, reusing buf. A line longer than
// maxLineSize is consumed up to its newline and reported as oversized.
func readLine(br *bufio.Reader, buf []byte) ([]byte, bool, error) {
	buf = buf[:0]
	oversized := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversized {
			if len(buf)+len(chunk) > maxLineSize+1 {
				oversized = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return bytes.TrimRight(buf, "\r\n"), oversized, err
	}
}

func (r *Reader) publish(ctx context.Context, ev model.SourceEvent) error {
	if r.blocking {
		select {
		case r.events <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	select {
	case r.events <- ev:
	default:
		r.dropped.Add(1)
		common.LogWarn("Event buffer full, dropping event", common.Fields{
			"app":  ev.SourceApp,
			"kind": string(ev.Kind),
		})
	}
	return nil
}
