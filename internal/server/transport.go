package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// MaxMessageSize is the maximum size for a single protocol message (1MB).
// This accommodates large metadata responses and long dependency lists.
const MaxMessageSize = 1024 * 1024

// malformedMessageError marks a line that was read but could not be
// decoded; the stream itself is still usable afterwards.
type malformedMessageError struct {
	err error
}

func (e *malformedMessageError) Error() string {
	return fmt.Sprintf("failed to parse JSON-RPC message: %v", e.err)
}

func (e *malformedMessageError) Unwrap() error {
	return e.err
}

// codec frames line-delimited JSON-RPC messages over one stream. Reads
// happen from a single loop; writes come from concurrent handlers and
// are serialized by a mutex.
type codec struct {
	scanner *bufio.Scanner
	logger  *slog.Logger

	mu  sync.Mutex
	out io.Writer
}

func newCodec(r io.Reader, w io.Writer, logger *slog.Logger) *codec {
	scanner := bufio.NewScanner(r)
	// Increase buffer size beyond default 64KB to handle large messages
	scanner.Buffer(make([]byte, MaxMessageSize), MaxMessageSize)
	return &codec{scanner: scanner, logger: logger, out: w}
}

// read returns the next message from the stream. io.EOF marks a clean
// end of the stream; a malformedMessageError leaves the stream readable,
// any other error does not.
func (c *codec) read() (*Message, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return nil, fmt.Errorf("error reading message: %w", err)
		}
		return nil, io.EOF
	}

	line := c.scanner.Bytes()
	c.logger.Debug("Received message",
		"raw", string(line),
	)

	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, &malformedMessageError{err: err}
	}
	return &msg, nil
}

// write sends one message on the stream.
func (c *codec) write(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshaling JSON-RPC message: %w", err)
	}

	c.logger.Debug("Sending message",
		"raw", string(data),
	)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.out, "%s\n", data); err != nil {
		return fmt.Errorf("error writing message: %w", err)
	}
	return nil
}
