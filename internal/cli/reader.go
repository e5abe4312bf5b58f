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

type lineResult struct {
	err  error
	line string
}

// LineReader reads trimmed lines and gives up waiting when the context ends.
// A read abandoned by a cancelled caller is handed to the next ReadLine, so no
// typed line is lost.
type LineReader struct {
	src     *bufio.Reader
	pending chan lineResult
	mu      sync.Mutex
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{src: bufio.NewReader(r)}
}

// ReadLine returns the next line without surrounding whitespace. A final line
// without a newline is returned before io.EOF.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	r.mu.Lock()
	ch := r.pending
	r.pending = nil
	if ch == nil {
		ch = make(chan lineResult, 1)
		go r.read(ch)
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		r.mu.Lock()
		r.pending = ch
		r.mu.Unlock()
		return "", ErrInputCancelled
	case res := <-ch:
		return res.line, res.err
	}
}

func (r *LineReader) read(ch chan<- lineResult) {
	line, err := r.src.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		err = nil
	}
	ch <- lineResult{line: strings.TrimSpace(line), err: err}
}
