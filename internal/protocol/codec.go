package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// MaxLineBytes bounds a single command line. Anything larger is
// resource exhaustion, not a command.
const MaxLineBytes = 1 << 20

// Reader reassembles newline-delimited frames from a stream. A line
// split across transport reads is buffered until its '\n' arrives;
// partial lines are never surfaced.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps a stream in a frame reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 4096)}
}

// ReadLine returns the next complete line without its trailing
// newline. io.EOF with a non-empty partial line is reported as
// io.ErrUnexpectedEOF since the frame never completed.
func (r *Reader) ReadLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.r.ReadSlice('\n')
		line = append(line, chunk...)
		if err == nil {
			break
		}
		if err == bufio.ErrBufferFull {
			if len(line) > MaxLineBytes {
				return nil, fmt.Errorf("command line exceeds %d bytes", MaxLineBytes)
			}
			continue
		}
		if err == io.EOF && len(line) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	// Strip the delimiter and an optional '\r'.
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, nil
}

// Writer emits one JSON line per response. Writes are serialized so
// concurrent callers cannot interleave partial lines.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps a stream in a response writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteResponse serializes resp as exactly one line.
func (w *Writer) WriteResponse(resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.w.Write(data)
	return err
}

// WriteCommand serializes cmd as exactly one line. Used by clients.
func (w *Writer) WriteCommand(cmd *Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.w.Write(data)
	return err
}
