package render

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

type lineResult struct {
	line string
	err  error
}

// LineReader reads operator input one line at a time. Reads can be abandoned
// through their context; a line typed meanwhile goes to the next read.
type LineReader struct {
	r     *bufio.Reader
	lines chan lineResult
	once  sync.Once
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{
		r:     bufio.NewReader(r),
		lines: make(chan lineResult),
	}
}

// ReadLine returns the next line without its trailing newline. It returns
// io.EOF once input is closed, and ctx.Err() if ctx ends first.
func (l *LineReader) ReadLine(ctx context.Context) (string, error) {
	l.once.Do(func() { go l.pump() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}

		return res.line, res.err
	}
}

// pump hands lines to readers until input fails.
func (l *LineReader) pump() {
	defer close(l.lines)

	for {
		line, err := l.r.ReadString('\n')
		if line != "" {
			l.lines <- lineResult{line: strings.TrimRight(line, "\r\n")}
		}

		if err != nil {
			if err != io.EOF {
				l.lines <- lineResult{err: err}
			}

			return
		}
	}
}
