package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// LineReader reads terminal lines without ignoring context cancellation.
type LineReader struct {
	reader *bufio.Reader
	lines  chan lineResult
	mu     sync.Mutex
	busy   bool
}

type lineResult struct {
	err   error
	value string
}

// NewLineReader creates a reader over r.
func NewLineReader(r io.Reader) *LineReader {
	if r == nil {
		panic("reader cannot be nil")
	}
	return &LineReader{
		reader: bufio.NewReader(r),
		lines:  make(chan lineResult, 1),
	}
}

// ReadLine returns the next line without its trailing whitespace. A read abandoned by
// cancellation is kept and returned by the next call, so no typed input is lost.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrInputCancelled
	}

	r.mu.Lock()
	if !r.busy {
		r.busy = true
		go func() {
			value, err := r.reader.ReadString('\n')
			r.lines <- lineResult{value: value, err: err}
		}()
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-r.lines:
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
		if res.err != nil && (res.err != io.EOF || res.value == "") {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}
