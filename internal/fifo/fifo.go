// Package fifo manages the named pipe that hands the transport stream to
// the consumer (e.g. a media player reading /tmp/elgato_gchd.ts).
package fifo

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned by Open and Write once the channel has been shut
// down
var ErrClosed = errors.New("consumer channel closed")

// Channel is the write side of a named pipe. Exactly one writer (this
// process) and at most one reader are expected; the pipe's own blocking
// semantics are the only flow control.
type Channel struct {
	path string

	mu     sync.Mutex
	file   *os.File
	closed bool
}

// Create makes the pipe node at path with mode 0644. A node left behind
// by an earlier run is reused; anything else already at the path is an
// error, not a reuse candidate.
func Create(path string) (*Channel, error) {
	if err := unix.Mkfifo(path, 0644); err != nil {
		if !errors.Is(err, unix.EEXIST) {
			return nil, fmt.Errorf("mkfifo %s: %w", path, err)
		}
		info, serr := os.Stat(path)
		if serr != nil {
			return nil, fmt.Errorf("mkfifo %s: %w", path, serr)
		}
		if info.Mode()&os.ModeNamedPipe == 0 {
			return nil, fmt.Errorf("%s already exists and is not a FIFO", path)
		}
	}
	return &Channel{path: path}, nil
}

// Open opens the pipe for writing. It blocks until a reader attaches. If
// the channel was closed while Open was blocked (shutdown before any
// reader appeared), the late descriptor is closed and ErrClosed returned.
func (c *Channel) Open() error {
	f, err := os.OpenFile(c.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", c.path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		f.Close()
		return ErrClosed
	}
	c.file = f
	return nil
}

// Write forwards p to the reader, blocking while the pipe is full. A
// reader that went away surfaces as EPIPE (SIGPIPE is ignored
// process-wide).
func (c *Channel) Write(p []byte) (int, error) {
	c.mu.Lock()
	f := c.file
	c.mu.Unlock()

	if f == nil {
		return 0, ErrClosed
	}
	return f.Write(p)
}

// Path returns the pipe's filesystem path
func (c *Channel) Path() string {
	return c.path
}

// Close closes the write side. Safe to call when the pipe was never
// opened, and safe to call twice.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.file == nil {
		// A writer-side Open may still be blocked waiting for a
		// reader. Attaching the read side briefly releases it; the
		// released Open then sees the closed flag and discards its
		// descriptor.
		if r, err := os.OpenFile(c.path, os.O_RDONLY|unix.O_NONBLOCK, 0); err == nil {
			r.Close()
		}
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}

// Remove unlinks the pipe node
func (c *Channel) Remove() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
